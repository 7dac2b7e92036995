package cli

import (
	"context"
	"fmt"
)

func (a *App) Register(ctx context.Context) error {
	name, err := GetSimpleText(a.reader, "Enter name", a.out)
	if err != nil {
		return err
	}
	email, err := GetSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	pw, err := GetPassword("Enter password", a.out)
	if err != nil {
		return err
	}

	u, err := a.auth.Register(ctx, name, email, pw)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Registered %s, you can log in now\n", u.Email)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	pw, err := GetPassword("Enter password", a.out)
	if err != nil {
		return err
	}

	if err := a.auth.Login(ctx, email, pw); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Login successful")
	return nil
}

// LoginOAuth prints the provider URL and waits for the code the provider
// redirected the browser with.
func (a *App) LoginOAuth(ctx context.Context) error {
	url, err := a.auth.OAuthURL(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Open this URL in a browser and sign in:")
	fmt.Fprintln(a.out, url)

	code, err := GetSimpleText(a.reader, "Paste the code parameter of the redirect", a.out)
	if err != nil {
		return err
	}
	if err := a.auth.LoginOAuth(ctx, code); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Login successful")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	if err := a.auth.Refresh(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Session refreshed")
	return nil
}

func (a *App) Whoami(ctx context.Context) error {
	u, err := a.auth.Me(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s <%s> id=%s\n", u.Name, u.Email, u.ID)
	return nil
}

func (a *App) ForgotPassword(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	if err := a.auth.RequestReset(ctx, email); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "If the address is registered, a reset link is on its way")
	return nil
}

func (a *App) ResetPassword(ctx context.Context) error {
	token, err := GetSimpleText(a.reader, "Enter reset token", a.out)
	if err != nil {
		return err
	}
	pw, err := GetPassword("Enter new password", a.out)
	if err != nil {
		return err
	}
	if err := a.auth.ResetPassword(ctx, token, pw); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Password changed, log in again")
	return nil
}

package cli

import (
	"time"

	"example.com/kaitrack/internal/auth"
)

// TokenCmd issues a signed bearer token for local development.
type TokenCmd struct {
	Subject  string        `arg:"" help:"User id placed in the sub claim."`
	Username string        `help:"preferred_username claim."`
	Scopes   []string      `help:"Scopes to grant. Defaults to every API scope."`
	TTL      time.Duration `help:"Token lifetime." default:"1h"`
	Secret   string        `help:"HMAC signing secret." env:"JWT_SECRET" default:"dev-secret-change-me"`
	Issuer   string        `help:"Token issuer." env:"JWT_ISSUER" default:"kaitrack.identity"`
}

func (c *TokenCmd) Run(ctx *Context) error {
	scopes := c.Scopes
	if len(scopes) == 0 {
		scopes = auth.AllScopes()
	}
	token, err := auth.Issue(auth.Config{Secret: c.Secret, Issuer: c.Issuer}, c.Subject, c.Username, scopes, c.TTL, time.Now())
	if err != nil {
		return err
	}
	ctx.printf("%s\n", token)
	return nil
}

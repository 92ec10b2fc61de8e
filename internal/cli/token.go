package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/scottsaenz/child-allowance-tracker/pkg/printer"
	"github.com/scottsaenz/child-allowance-tracker/pkg/tracker/auth"
)

var (
	tokenEmail    string
	tokenGoogleID string
	tokenTTL      time.Duration
)

var TokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage session tokens",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Sign a session token with JWT_SECRET_KEY",
	Long: `Sign a session token for scripts and testing without going through Google login.
The user must still exist and be active for the API to accept the token.
A negative --ttl produces a token that is already expired.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if tokenEmail == "" || tokenGoogleID == "" {
			return errors.New("--email and --google-id are required")
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.JWTSecretKey == "" {
			return errors.New("JWT_SECRET_KEY is not set")
		}
		tokens, err := auth.NewTokenManager(cfg.JWTSecretKey, auth.WithTokenDuration(cfg.TokenTTL))
		if err != nil {
			return err
		}
		token, err := tokens.IssueToken(cmd.Context(), auth.TokenIdentity{Email: tokenEmail, GoogleID: tokenGoogleID}, tokenTTL)
		if err != nil {
			return err
		}
		p := printer.New(printer.OutputTypeJSON)
		p.SetOutput(cmd.OutOrStdout())
		return p.Print(token)
	},
}

func init() {
	tokenIssueCmd.Flags().StringVar(&tokenEmail, "email", "", "Email the token is issued to")
	tokenIssueCmd.Flags().StringVar(&tokenGoogleID, "google-id", "", "Google account id embedded in the token")
	tokenIssueCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "Token lifetime; 0 uses TOKEN_TTL")
	TokenCmd.AddCommand(tokenIssueCmd)
}

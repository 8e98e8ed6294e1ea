package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yuzeguitarist/text2qr/internal/app"
	"github.com/yuzeguitarist/text2qr/internal/payload"
)

func newOTPAuthCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "otpauth",
		Short: "Generate a TOTP secret and its authenticator enrolment QR code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			issuer, _ := cmd.Flags().GetString("issuer")
			account, _ := cmd.Flags().GetString("account")
			digits, _ := cmd.Flags().GetInt("digits")
			period, _ := cmd.Flags().GetUint("period")

			e, err := payload.OTPAuth{Issuer: issuer, Account: account, Digits: digits, Period: period}.Generate()
			if err != nil {
				return err
			}
			enc, err := encoderFromFlags(cmd)
			if err != nil {
				return err
			}
			sym, err := enc.Encode(e.URI)
			if err != nil {
				return err
			}

			// secret goes to stderr so stdout can carry PNG bytes
			errOut := cmd.ErrOrStderr()
			fmt.Fprintln(errOut, "Secret (shown once):", app.Color(errOut, e.Secret, app.Bold))
			fmt.Fprintln(errOut, "URI:", e.URI)
			return writeSymbol(cmd, sym)
		},
	}
	c.Flags().String("issuer", "", "issuer shown in the authenticator app (required)")
	c.Flags().String("account", "", "account name, usually an email address (required)")
	c.Flags().Int("digits", 6, "code length, 6 or 8")
	c.Flags().Uint("period", 30, "code period in seconds")
	_ = c.MarkFlagRequired("issuer")
	_ = c.MarkFlagRequired("account")
	addOutputFlags(c)
	return c
}

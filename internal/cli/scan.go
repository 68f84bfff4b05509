package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"trustscan/internal/app"
	"trustscan/internal/domain"
)

var (
	colorGreen  = color.New(color.FgGreen).SprintFunc()
	colorRed    = color.New(color.FgRed).SprintFunc()
	colorYellow = color.New(color.FgYellow).SprintFunc()
	colorCyan   = color.New(color.FgCyan).SprintFunc()
	colorBold   = color.New(color.Bold).SprintFunc()
)

func newScanCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "scan <url-or-domain>",
		Short: "Scan one website and print its trust verdict",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			a, err := app.Build(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Scanner.Scan(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			render(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw result as JSON")
	return cmd
}

func verdictColor(v domain.Verdict) func(a ...interface{}) string {
	switch v {
	case domain.VerdictSafe:
		return colorGreen
	case domain.VerdictCaution:
		return colorYellow
	default:
		return colorRed
	}
}

func mark(ok bool) string {
	if ok {
		return colorGreen("yes")
	}
	return colorRed("no")
}

func render(w io.Writer, res domain.ScanResult) {
	paint := verdictColor(res.RiskLevel)
	fmt.Fprintf(w, "%s %s\n", colorBold(res.Hostname), paint(fmt.Sprintf("%d/100 %s", res.Score, strings.ToUpper(string(res.RiskLevel)))))
	fmt.Fprintf(w, "  Confidence: %s (%d/%d checks)\n", res.Confidence, res.DataQuality.Succeeded(), domain.TrackedSignals)
	fmt.Fprintf(w, "  Domain age: %s\n", res.DomainAge)

	d := res.Details
	fmt.Fprintf(w, "  TLS:        valid %s, issuer %s, %d days left\n", mark(d.SSL.IsValid), d.SSL.Issuer, d.SSL.DaysRemaining)
	fmt.Fprintf(w, "  Headers:    HSTS %s, CSP %s, X-Frame %s\n", mark(d.Headers.HSTS), mark(d.Headers.CSP), mark(d.Headers.XFrame))
	fmt.Fprintf(w, "  Hosting:    %s (%s, %s)\n", d.Hosting.Country, d.Hosting.ISP, d.Hosting.IP)
	if res.ImpersonationTarget != nil {
		fmt.Fprintf(w, "  Mimics:     %s\n", colorRed(*res.ImpersonationTarget))
	}
	for _, f := range res.RedFlags {
		fmt.Fprintf(w, "  %s %s\n", colorRed("!"), f)
	}
	fmt.Fprintf(w, "\n%s\n", colorCyan(res.Summary))
}

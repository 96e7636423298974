package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"contract-sender/internal/leads"
	"contract-sender/internal/smstemplate"

	"github.com/spf13/cobra"
)

var (
	renderTemplate     string
	renderTemplateFile string
	renderSet          []string
	renderJSON         bool

	renderLead    leads.Lead
	renderProduct smstemplate.Product
	renderTerms   smstemplate.Terms
	renderPhone   string
)

// renderCmd renders an SMS template locally
var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render an SMS template",
	Long: `Substitute placeholders in an SMS template without sending anything.

Defaults come from the lead, product and terms flags; --set field=value
overrides a field. Unresolved placeholders are left as written.`,
	RunE: runRender,
}

func init() {
	f := renderCmd.Flags()
	f.StringVarP(&renderTemplate, "template", "t", "", "template text")
	f.StringVarP(&renderTemplateFile, "template-file", "f", "", "read the template from a file")
	f.StringArrayVar(&renderSet, "set", nil, "override a field, e.g. --set price=299 (repeatable)")
	f.BoolVar(&renderJSON, "json", false, "print body, length and segments as JSON")

	f.StringVar(&renderLead.CompanyName, "company", "", "lead company name")
	f.StringVar(&renderLead.ContactPerson, "contact", "", "lead contact person")
	f.StringVar(&renderLead.OrgNumber, "orgnr", "", "lead organisation number")
	f.StringVar(&renderLead.Email, "email", "", "lead email")
	f.StringVar(&renderPhone, "phone", "", "recipient phone number")
	f.StringVar(&renderProduct.Name, "product", "", "product name")
	f.Float64Var(&renderProduct.Price, "price", 0, "product price")
	f.StringVar(&renderTerms.URL, "terms-url", "", "terms document URL")
}

func runRender(cmd *cobra.Command, args []string) error {
	tmpl := renderTemplate
	if renderTemplateFile != "" {
		b, err := os.ReadFile(renderTemplateFile)
		if err != nil {
			return err
		}
		tmpl = strings.TrimRight(string(b), "\n")
	}
	if tmpl == "" {
		return errors.New("a template is required (--template or --template-file)")
	}

	overrides, err := parseOverrides(renderSet)
	if err != nil {
		return err
	}

	ctx := smstemplate.Context{Overrides: overrides, Phone: renderPhone, Now: time.Now()}
	if l := renderLead; l.CompanyName != "" || l.ContactPerson != "" || l.OrgNumber != "" || l.Email != "" {
		l := renderLead
		ctx.Lead = &l
	}
	if renderProduct != (smstemplate.Product{}) {
		p := renderProduct
		ctx.Product = &p
	}
	if renderTerms != (smstemplate.Terms{}) {
		t := renderTerms
		ctx.Terms = &t
	}

	out := smstemplate.Render(tmpl, ctx)
	if renderJSON {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
	}
	fmt.Fprintln(cmd.OutOrStdout(), out.Body)
	fmt.Fprintf(cmd.ErrOrStderr(), "%d characters, %d segment(s)\n", out.Length, out.Segments)
	return nil
}

func parseOverrides(pairs []string) (map[smstemplate.Field]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	known := map[smstemplate.Field]bool{}
	for _, f := range smstemplate.Placeholders {
		known[f] = true
	}
	out := make(map[smstemplate.Field]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		f := smstemplate.Field(strings.TrimSpace(k))
		if !ok || !known[f] {
			return nil, fmt.Errorf("invalid --set %q: want field=value with a known field", p)
		}
		out[f] = v
	}
	return out, nil
}

package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spec-kit/feedback-service/internal/authz"
	"github.com/spec-kit/feedback-service/internal/domain"
)

func policyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect the authorization rule table",
	}
	cmd.PersistentFlags().String("file", os.Getenv("AUTHZ_RULES_FILE"), "rules file (defaults to the embedded table)")
	cmd.PersistentFlags().String("default", os.Getenv("AUTHZ_DEFAULT"), "requirement for unmatched requests")

	cmd.AddCommand(policyCheckCmd())
	cmd.AddCommand(policyExplainCmd())
	return cmd
}

func loadPolicyFromFlags(cmd *cobra.Command) (*authz.Policy, error) {
	file, _ := cmd.Flags().GetString("file")
	fallback, _ := cmd.Flags().GetString("default")
	return authz.LoadPolicy(file, fallback)
}

func policyCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Fail if any rule is unreachable behind an earlier one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := loadPolicyFromFlags(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d rules, default %s\n", len(policy.Rules()), policy.Fallback())

			shadows := policy.Shadowed()
			for _, s := range shadows {
				fmt.Fprintf(out, "  unreachable: %s\n", s)
			}
			if len(shadows) > 0 {
				return fmt.Errorf("%d unreachable rule(s)", len(shadows))
			}
			fmt.Fprintln(out, "ok")
			return nil
		},
	}
}

func policyExplainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explain METHOD PATH",
		Short: "Show which rule governs a request and whether a role passes it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := loadPolicyFromFlags(cmd)
			if err != nil {
				return err
			}

			var identity *domain.Identity
			roleName, _ := cmd.Flags().GetString("role")
			if roleName != "" {
				role, err := domain.ParseRole(roleName)
				if err != nil {
					return err
				}
				identity = &domain.Identity{Subject: "cli", Role: role}
			}

			method := strings.ToUpper(args[0])
			decision := policy.Authorize(method, args[1], identity)

			out := cmd.OutOrStdout()
			source := "rule"
			if decision.Default {
				source = "default"
			}
			fmt.Fprintf(out, "%s:  %s\n", source, decision.Rule)
			if decision.Allowed {
				fmt.Fprintln(out, "decision: allow")
				return nil
			}
			status := http.StatusForbidden
			if decision.Reason == authz.DenyNoIdentity {
				status = http.StatusUnauthorized
			}
			fmt.Fprintf(out, "decision: deny (%s, %d)\n", decision.Reason, status)
			return nil
		},
	}
	cmd.Flags().String("role", "", "caller role (admin or employee); empty means anonymous")
	return cmd
}

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yanizio/storefront/internal/flags"
	"github.com/yanizio/storefront/internal/identity"
	"github.com/yanizio/storefront/internal/tenant"
)

func validateCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Parse and compile a flags file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := flags.LoadFile(file)
			if err != nil {
				return err
			}
			global, _ := s.Load(cmd.Context(), "")
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ok: %d global flags\n", len(global))
			for _, id := range s.Tenants() {
				defs, _ := s.Load(cmd.Context(), id)
				fmt.Fprintf(out, "  %s: %d overrides\n", id, len(defs))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "conf/flags.yaml", "Flags file")
	return cmd
}

func evalCmd() *cobra.Command {
	var (
		file, principal, role, tenantID, env, only string
		anonymous                                  bool
	)
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate every flag for one subject",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := flags.LoadFile(file)
			if err != nil {
				return err
			}

			p := identity.Anonymous()
			if !anonymous {
				if principal == "" {
					return fmt.Errorf("--principal is required unless --anonymous is set")
				}
				p = identity.Principal{ID: principal, Role: identity.ParseRole(role), Method: identity.MethodToken}
			}
			var t *tenant.Tenant
			if tenantID != "" {
				t = &tenant.Tenant{ID: strings.ToLower(tenantID)}
			}

			ev := flags.NewEvaluator(flags.Layered{Layers: []flags.Source{s}}, env, nil)
			snap := ev.Snapshot(cmd.Context(), p, t)

			var v any = snap
			if only != "" {
				v = snap.Decision(only)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(v)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&file, "file", "f", "conf/flags.yaml", "Flags file")
	f.StringVarP(&principal, "principal", "p", "", "Principal id")
	f.StringVarP(&role, "role", "r", "customer", "Principal role (customer, admin)")
	f.StringVarP(&tenantID, "tenant", "t", "", "Tenant slug")
	f.StringVarP(&env, "env", "e", "production", "Deployment environment")
	f.StringVar(&only, "flag", "", "Print a single decision")
	f.BoolVar(&anonymous, "anonymous", false, "Evaluate for an anonymous caller")
	return cmd
}

func bucketCmd() *cobra.Command {
	var (
		flag, principal string
		pct             float64
	)
	cmd := &cobra.Command{
		Use:   "bucket",
		Short: "Show the rollout bucket of a principal for a flag",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if flag == "" || principal == "" {
				return fmt.Errorf("--flag and --principal are required")
			}
			b := flags.Bucket(flag, principal)
			fmt.Fprintf(cmd.OutOrStdout(), "bucket %d/%d in=%t\n", b, flags.Buckets, flags.InRollout(pct, b))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&flag, "flag", "", "Flag name")
	f.StringVarP(&principal, "principal", "p", "", "Principal id")
	f.Float64Var(&pct, "percentage", 0, "Rollout percentage to test against")
	return cmd
}

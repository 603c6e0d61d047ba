// Command policyctl is an operator CLI for the gateway's policy lists,
// talking to the same Redis store the admin HTTP API uses so scripts and
// CI don't need to go through HTTP.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"edgegate/internal/platform/config"
	"edgegate/internal/platform/redisx"
	"edgegate/internal/policy"
	"edgegate/pkg/sentinel"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "policyctl",
		Short: "Manage the gateway's IP/CIDR/country policy lists",
	}
	root.AddCommand(listCmd())
	root.AddCommand(addCmd())
	root.AddCommand(removeCmd())
	return root
}

func newStore() (*policy.RedisStore, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	rdb, err := redisx.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	store := policy.NewRedisStore(rdb.Client, cfg.RedisKeyPrefix)
	return store, func() { rdb.Close() }, nil
}

var listAliases = map[string]string{
	"ip-allow":     policy.KeyIPAllow,
	"ip-deny":      policy.KeyIPDeny,
	"cidr-deny":    policy.KeyCIDRDeny,
	"country-deny": policy.KeyCountryDeny,
}

func resolveListKey(alias string) (string, error) {
	key, ok := listAliases[alias]
	if !ok {
		return "", fmt.Errorf("unknown list %q (want one of ip-allow, ip-deny, cidr-deny, country-deny)", alias)
	}
	return key, nil
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the current contents of all four policy lists",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeFn, err := newStore()
			if err != nil {
				return err
			}
			defer closeFn()

			ipAllow, ipDeny, cidrDeny, countryDeny, err := store.LoadAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("load policy lists: %w", err)
			}
			fmt.Printf("ip-allow:     %v\n", ipAllow)
			fmt.Printf("ip-deny:      %v\n", ipDeny)
			fmt.Printf("cidr-deny:    %v\n", cidrDeny)
			fmt.Printf("country-deny: %v\n", countryDeny)
			return nil
		},
	}
}

func addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <list> <value>",
		Short: "Add an entry to a policy list and trigger a reload",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := resolveListKey(args[0])
			if err != nil {
				return err
			}
			store, closeFn, err := newStore()
			if err != nil {
				return err
			}
			defer closeFn()

			if err := store.AddIP(cmd.Context(), key, args[1]); err != nil {
				return fmt.Errorf("add entry: %w", err)
			}
			if err := store.Publish(cmd.Context(), policy.InvalidationChannel, policy.ReloadPayload); err != nil {
				return fmt.Errorf("publish invalidation: %w", err)
			}
			fmt.Printf("added %q to %s\n", args[1], args[0])
			return nil
		},
	}
}

func removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <list> <value>",
		Short: "Remove an entry from a policy list and trigger a reload",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := resolveListKey(args[0])
			if err != nil {
				return err
			}
			store, closeFn, err := newStore()
			if err != nil {
				return err
			}
			defer closeFn()

			if err := store.RemoveIP(cmd.Context(), key, args[1]); err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					return fmt.Errorf("%q is not in %s", args[1], args[0])
				}
				return fmt.Errorf("remove entry: %w", err)
			}
			if err := store.Publish(cmd.Context(), policy.InvalidationChannel, policy.ReloadPayload); err != nil {
				return fmt.Errorf("publish invalidation: %w", err)
			}
			fmt.Printf("removed %q from %s\n", args[1], args[0])
			return nil
		},
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/suteetoe/notes-service/internal/seed"
	"github.com/suteetoe/notes-service/internal/server"
	"github.com/suteetoe/notes-service/internal/service"
	"github.com/suteetoe/notes-service/pkg/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "notes-service",
		Short:         "Multi-tenant notes API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newSeedCommand(),
		newTenantCommand(),
	)
	return root
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(
				server.Module,
				fx.Invoke(server.Run),
			)
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				db  *gorm.DB
				log *zap.Logger
			)
			// Migrations run when the database is provided
			return withApp(cmd.Context(), func(ctx context.Context) error {
				log.Info("Database migrated", zap.String("dialect", db.Dialector.Name()))
				return nil
			}, fx.Populate(&db, &log))
		},
	}
}

func newSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Provision the demo tenants and accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				cfg    *config.Config
				seeder *seed.Seeder
				log    *zap.Logger
			)
			return withApp(cmd.Context(), func(ctx context.Context) error {
				result, err := seeder.Run(ctx, seed.Demo, cfg.Seed.Password)
				if err != nil {
					return err
				}
				log.Info("Seed finished", zap.Int("tenants", result.Tenants), zap.Int("users", result.Users))
				return nil
			}, fx.Populate(&cfg, &seeder, &log))
		},
	}
}

func newTenantCommand() *cobra.Command {
	tenant := &cobra.Command{
		Use:   "tenant",
		Short: "Manage tenants",
	}

	var in service.CreateTenantInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a tenant with its first admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			var tenants *service.TenantService
			return withApp(cmd.Context(), func(ctx context.Context) error {
				t, admin, err := tenants.Create(ctx, in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created tenant %s (%s) plan=%s admin=%s\n",
					t.Slug, t.ID, t.SubscriptionPlan, admin.Email)
				return nil
			}, fx.Populate(&tenants))
		},
	}
	create.Flags().StringVar(&in.Name, "name", "", "tenant display name (required)")
	create.Flags().StringVar(&in.Slug, "slug", "", "tenant slug, derived from the name when empty")
	create.Flags().StringVar(&in.Plan, "plan", "free", "subscription plan: free or pro")
	create.Flags().StringVar(&in.AdminEmail, "admin-email", "", "email of the first admin (required)")
	create.Flags().StringVar(&in.AdminPassword, "admin-password", "", "password of the first admin (required)")
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("admin-email")
	_ = create.MarkFlagRequired("admin-password")

	tenant.AddCommand(create)
	return tenant
}

// withApp builds the service graph without the HTTP listener, runs fn
// between start and stop, and returns its error
func withApp(ctx context.Context, fn func(ctx context.Context) error, opts ...fx.Option) error {
	if ctx == nil {
		ctx = context.Background()
	}
	app := fx.New(append([]fx.Option{server.Module}, opts...)...)
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}

	runErr := fn(ctx)

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil && runErr == nil {
		return err
	}
	return runErr
}

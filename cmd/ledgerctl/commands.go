package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jhoicas/liquid-ledger/internal/application/ledger"
	"github.com/jhoicas/liquid-ledger/internal/bootstrap"
	"github.com/jhoicas/liquid-ledger/internal/domain/entity"
	"github.com/jhoicas/liquid-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/liquid-ledger/pkg/config"
	"github.com/jhoicas/liquid-ledger/pkg/jwt"
	"github.com/jhoicas/liquid-ledger/pkg/logger"
)

// env dependencias resueltas por PersistentPreRunE.
type env struct {
	cfg *config.Config
	log *logger.Logger
}

func newRootCmd() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:          "ledgerctl",
		Short:        "Operación del libro de repuestos líquidos",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			e.cfg = cfg
			e.log = logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "ledgerctl", Output: cmd.ErrOrStderr()})
			return nil
		},
	}
	root.AddCommand(
		newMigrateCmd(e),
		newPartsCmd(e),
		newBalanceCmd(e),
		newLedgerCmd(e),
		newReconcileCmd(e),
		newTokenCmd(e),
	)
	return root
}

// withLedger abre el servicio, ejecuta fn y cierra los recursos.
func (e *env) withLedger(ctx context.Context, fn func(svc *ledger.Service) error) (err error) {
	app, err := bootstrap.New(ctx, e.cfg, e.log.Zerolog(), bootstrap.Options{})
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, app.Close())
	}()
	return fn(app.Service)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newMigrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones pendientes de PostgreSQL",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if e.cfg.Storage.Driver != config.StoragePostgres {
				return fmt.Errorf("migrate solo aplica a STORAGE_DRIVER=postgres (actual: %s)", e.cfg.Storage.Driver)
			}
			ctx := cmd.Context()
			pool, err := postgres.NewPool(ctx, e.cfg.DB, e.log.Component("postgres"))
			if err != nil {
				return err
			}
			defer pool.Close()
			return postgres.Migrate(ctx, pool, e.log.Zerolog())
		},
	}
}

func newPartsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "parts",
		Short: "Lista los repuestos líquidos",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withLedger(cmd.Context(), func(svc *ledger.Service) error {
				parts, err := svc.ListParts(cmd.Context())
				if err != nil {
					return err
				}
				return writeParts(cmd.OutOrStdout(), parts)
			})
		},
	}
}

func writeParts(w io.Writer, parts []*entity.Part) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCÓDIGO\tNOMBRE\tUNIDAD\tENVASE\tCOSTO PROM.")
	for _, p := range parts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", p.ID, p.Code, p.Name, p.BaseUnit, p.ContainerSize, p.AvgCostPerBaseUnit)
	}
	return tw.Flush()
}

func newBalanceCmd(e *env) *cobra.Command {
	var location string
	cmd := &cobra.Command{
		Use:   "balance <part-id>",
		Short: "Saldo actual de un repuesto en una ubicación",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := entity.ParseLocation(location)
			if err != nil {
				return err
			}
			return e.withLedger(cmd.Context(), func(svc *ledger.Service) error {
				b, err := svc.GetCurrentBalance(cmd.Context(), args[0], loc)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), b)
			})
		},
	}
	cmd.Flags().StringVarP(&location, "location", "l", entity.StoreLocationID, "store o van:<id>")
	return cmd
}

func newLedgerCmd(e *env) *cobra.Command {
	var (
		location string
		limit    int
		offset   int
	)
	cmd := &cobra.Command{
		Use:   "ledger <part-id>",
		Short: "Libro de movimientos con saldo corrido",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var loc *entity.Location
			if location != "" {
				l, err := entity.ParseLocation(location)
				if err != nil {
					return err
				}
				loc = &l
			}
			return e.withLedger(cmd.Context(), func(svc *ledger.Service) error {
				page, err := svc.GetLedger(cmd.Context(), args[0], loc, ledger.Page{Limit: limit, Offset: offset})
				if err != nil {
					return err
				}
				return writeLedger(cmd.OutOrStdout(), page)
			})
		},
	}
	cmd.Flags().StringVarP(&location, "location", "l", "", "store o van:<id>; vacío = todo el repuesto")
	cmd.Flags().IntVar(&limit, "limit", 0, "filas a mostrar (0 = todas)")
	cmd.Flags().IntVar(&offset, "offset", 0, "filas a saltar")
	return cmd
}

func writeLedger(w io.Writer, page *ledger.LedgerPage) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s (%s) · %d filas\n", page.Part.Code, page.Part.BaseUnit, page.Total)
	fmt.Fprintln(tw, "FECHA\tTIPO\tUBICACIÓN\tCAMBIO\tSALDO\tREFERENCIA\tPOR")
	for _, r := range page.Rows {
		m := r.Movement
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			m.PerformedAt.Format("2006-01-02 15:04:05"), m.MovementType, m.Location(), r.Change, r.Balance, r.Reference, m.PerformedByName)
	}
	return tw.Flush()
}

func newReconcileCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile [part-id]",
		Short: "Compara el agregado de cada ubicación con la suma del libro (sin partes = todos)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withLedger(cmd.Context(), func(svc *ledger.Service) error {
				var (
					reports []*ledger.ReconcileReport
					err     error
				)
				if len(args) == 1 {
					var r *ledger.ReconcileReport
					r, err = svc.Reconcile(cmd.Context(), args[0])
					if r != nil {
						reports = append(reports, r)
					}
				} else {
					reports, err = svc.ReconcileAll(cmd.Context())
				}
				if perr := printJSON(cmd.OutOrStdout(), reports); perr != nil {
					return perr
				}
				if err != nil {
					return err
				}
				for _, r := range reports {
					if r.Drifted > 0 {
						return fmt.Errorf("%d ubicaciones desviadas en %s", r.Drifted, r.PartID)
					}
				}
				return nil
			})
		},
	}
}

func newTokenCmd(e *env) *cobra.Command {
	var (
		userID  string
		name    string
		role    string
		minutes int
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Firma un token JWT para un usuario o integración",
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch role {
			case jwt.RoleAdmin, jwt.RoleStorekeeper, jwt.RoleTechnician:
			default:
				return fmt.Errorf("rol desconocido %q", role)
			}
			if minutes <= 0 {
				minutes = e.cfg.JWT.Expiration
			}
			tok, err := jwt.Generate(e.cfg.JWT.Secret, userID, name, role, e.cfg.JWT.Issuer, minutes)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "id del usuario (performed_by)")
	cmd.Flags().StringVar(&name, "name", "", "nombre visible (performed_by_name)")
	cmd.Flags().StringVar(&role, "role", jwt.RoleTechnician, "admin, storekeeper o technician")
	cmd.Flags().IntVar(&minutes, "minutes", 0, "vigencia; 0 = JWT_EXPIRATION_MINUTES")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jhoicas/stocker-ledger/internal/bootstrap"
	"github.com/jhoicas/stocker-ledger/internal/domain/entity"
)

type openFunc func(ctx context.Context) (*bootstrap.Engine, error)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
)

// errDrift verify termina con código distinto de cero si hay claves desviadas.
var errDrift = errors.New("proyección desviada del ledger")

type keyFlags struct {
	product   string
	warehouse string
	all       bool
}

func (f *keyFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.product, "product", "p", "", "producto de la clave")
	cmd.Flags().StringVarP(&f.warehouse, "warehouse", "w", "", "bodega de la clave")
	cmd.Flags().BoolVar(&f.all, "all", false, "todas las claves")
}

func (f *keyFlags) key() (entity.LevelKey, error) {
	if f.all && f.product != "" {
		return entity.LevelKey{}, errors.New("--all no se combina con --product")
	}
	if !f.all && f.product == "" {
		return entity.LevelKey{}, errors.New("indique --product o --all")
	}
	return entity.LevelKey{ProductID: f.product, LocationID: f.warehouse}, nil
}

func newRootCmd(open openFunc, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:          "ledgerctl",
		Short:        "Operación del ledger de inventario",
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.SetErr(out)

	withEngine := func(cmd *cobra.Command, fn func(ctx context.Context, e *bootstrap.Engine) error) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		e, err := open(ctx)
		if err != nil {
			return err
		}
		defer e.Close()
		return fn(ctx, e)
	}

	root.AddCommand(rebuildCmd(withEngine), verifyCmd(withEngine), catalogCmd(withEngine))
	return root
}

type engineRunner func(cmd *cobra.Command, fn func(ctx context.Context, e *bootstrap.Engine) error) error

func rebuildCmd(run engineRunner) *cobra.Command {
	var flags keyFlags
	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Recalcula niveles desde el ledger",
		Long: `Descarta el nivel guardado y lo recalcula reproduciendo los movimientos en orden.

Ejemplos:
  ledgerctl rebuild --product P1 --warehouse W1
  ledgerctl rebuild --all`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := flags.key()
			if err != nil {
				return err
			}
			return run(cmd, func(ctx context.Context, e *bootstrap.Engine) error {
				if flags.all {
					n, err := e.Rebuild.RebuildAll(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s %d claves reconstruidas\n", green("ok"), n)
					return nil
				}
				level, err := e.Rebuild.Rebuild(ctx, key)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s cantidad=%d last_event_id=%d\n",
					green("ok"), level.Key(), level.Quantity, level.LastEventID)
				return nil
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

func verifyCmd(run engineRunner) *cobra.Command {
	var flags keyFlags
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Compara los niveles guardados con el ledger sin escribir",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if flags.product == "" {
				flags.all = true
			}
			key, err := flags.key()
			if err != nil {
				return err
			}
			return run(cmd, func(ctx context.Context, e *bootstrap.Engine) error {
				w := cmd.OutOrStdout()
				if !flags.all {
					d, err := e.Rebuild.Verify(ctx, key)
					if err != nil {
						return err
					}
					if d.InSync {
						fmt.Fprintf(w, "%s %s cantidad=%d\n", green("ok"), d.Key, d.Stored)
						return nil
					}
					fmt.Fprintf(w, "%s %s guardado=%d ledger=%d\n", red("drift"), d.Key, d.Stored, d.Replayed)
					return errDrift
				}

				drifts, err := e.Rebuild.VerifyAll(ctx)
				if err != nil {
					return err
				}
				if len(drifts) == 0 {
					fmt.Fprintf(w, "%s sin desvíos\n", green("ok"))
					return nil
				}
				for _, d := range drifts {
					fmt.Fprintf(w, "%s %s guardado=%d (evento %d) ledger=%d (evento %d)\n",
						red("drift"), d.Key, d.Stored, d.StoredLastEventID, d.Replayed, d.ReplayedLastEventID)
				}
				fmt.Fprintf(w, "%s %d claves desviadas; ejecute 'ledgerctl rebuild --all'\n", yellow("!"), len(drifts))
				return errDrift
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

func catalogCmd(run engineRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Alta y baja de productos y bodegas referenciados por el ledger",
	}

	product := &cobra.Command{Use: "product", Short: "Productos"}
	product.AddCommand(
		&cobra.Command{
			Use:   "add <id> <nombre>",
			Short: "Registra un producto",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd, func(ctx context.Context, e *bootstrap.Engine) error {
					p, err := e.Catalog.CreateProduct(ctx, args[0], args[1])
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s producto %s\n", green("ok"), p.ID)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Elimina un producto sin movimientos",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd, func(ctx context.Context, e *bootstrap.Engine) error {
					if err := e.Catalog.DeleteProduct(ctx, args[0]); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s producto %s eliminado\n", green("ok"), args[0])
					return nil
				})
			},
		},
	)

	var address string
	addWarehouse := &cobra.Command{
		Use:   "add <id> <nombre>",
		Short: "Registra una bodega",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, e *bootstrap.Engine) error {
				w, err := e.Catalog.CreateWarehouse(ctx, args[0], args[1], address)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s bodega %s\n", green("ok"), w.ID)
				return nil
			})
		},
	}
	addWarehouse.Flags().StringVar(&address, "address", "", "dirección de la bodega")

	warehouse := &cobra.Command{Use: "warehouse", Short: "Bodegas"}
	warehouse.AddCommand(
		addWarehouse,
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Elimina una bodega sin movimientos",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd, func(ctx context.Context, e *bootstrap.Engine) error {
					if err := e.Catalog.DeleteWarehouse(ctx, args[0]); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s bodega %s eliminada\n", green("ok"), args[0])
					return nil
				})
			},
		},
	)

	cmd.AddCommand(product, warehouse)
	return cmd
}

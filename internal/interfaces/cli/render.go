package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/turtacn/ChemXGen/pkg/errors"
)

type renderOptions struct {
	File   string
	Out    string
	ThreeD bool
	Style  string
}

func newRenderCmd() *cobra.Command {
	opts := &renderOptions{}
	cmd := &cobra.Command{
		Use:   "render [MOLECULE]",
		Short: "Render a structure as SVG, or as a 3D scene with --3d",
		Example: `  chemxgen render 'CC(=O)Oc1ccccc1C(=O)O' --out aspirin.svg
  chemxgen render --file caffeine.mol --3d --style sphere -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inline := ""
			if len(args) == 1 {
				inline = args[0]
			}
			return runRender(cmd, opts, inline)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.File, "file", "f", "", "read the molecule from a file")
	f.StringVar(&opts.Out, "out", "", "write the SVG (or 3D scene JSON) to this file")
	f.BoolVar(&opts.ThreeD, "3d", false, "build a 3D scene instead of a 2D drawing")
	f.StringVar(&opts.Style, "style", "stick", "3D style (stick, sphere, line)")
	return cmd
}

func runRender(cmd *cobra.Command, opts *renderOptions, inline string) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	mol, err := readMolecule(cliCtx.Fs, inline, opts.File)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(cmd, cliCtx)
	defer cancel()

	if opts.ThreeD {
		scene, err := cliCtx.Client.Render3D(ctx, mol, opts.Style)
		if err != nil {
			return err
		}
		if opts.Out != "" && scene.State == "ok" {
			data, err := json.MarshalIndent(scene, "", "  ")
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeSerialization, "encode scene")
			}
			return writeOut(cmd, cliCtx.Fs, opts.Out, data)
		}
		return PrintResult(cmd, cliCtx, scene, func() string {
			if scene.State != "ok" {
				return scene.Message + "\n"
			}
			return fmt.Sprintf("3D scene: %d atoms, %d bonds, style %s\n", scene.AtomCount, len(scene.Bonds), scene.Style)
		})
	}

	res, err := cliCtx.Client.Render2D(ctx, mol)
	if err != nil {
		return err
	}
	if opts.Out != "" && res.State == "ok" {
		return writeOut(cmd, cliCtx.Fs, opts.Out, []byte(res.SVG))
	}
	return PrintResult(cmd, cliCtx, res, func() string {
		if res.State != "ok" {
			return res.Message + "\n"
		}
		var sb strings.Builder
		if res.Formula != "" {
			fmt.Fprintf(&sb, "Formula: %s\nWeight:  %.2f g/mol\n", res.Formula, res.Weight)
		}
		sb.WriteString(res.SVG)
		sb.WriteString("\n")
		return sb.String()
	})
}

func writeOut(cmd *cobra.Command, fs afero.Fs, path string, data []byte) error {
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "cannot write output").WithDetail(path)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "OK: wrote %s (%d bytes)\n", path, len(data))
	return nil
}

package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newPredictCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "predict REACTANT1 REACTANT2",
		Short: "Predict the products of a two-reactant reaction",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd, cliCtx)
			defer cancel()
			out, err := cliCtx.Client.PredictReaction(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return PrintResult(cmd, cliCtx, out, func() string {
				return fmt.Sprintf("%s + %s\n%s\n", args[0], args[1], indentValue(out))
			})
		},
	}
}

func newGenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate PROMPT...",
		Short: "Propose a novel molecule from a free-text brief",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd, cliCtx)
			defer cancel()
			out, err := cliCtx.Client.GenerateMolecule(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			return PrintResult(cmd, cliCtx, out, func() string {
				return fmt.Sprintf("Molecule: %s\n%s\n", out.MolString, indentValue(out))
			})
		},
	}
}

func indentValue(v interface{}) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(data)
}

func indentJSON(raw json.RawMessage) string {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return indentValue(v)
}

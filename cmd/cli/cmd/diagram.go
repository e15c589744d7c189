package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"decisionkit/core/conversion"
	"decisionkit/core/diagram"
	"decisionkit/core/node"
	"decisionkit/internal/errors"
)

func loadDiagram(path string) (*diagram.InfluenceDiagram, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records diagram.Records
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.Parsing("failed to decode diagram "+path, err)
	}
	return diagram.FromRecords(records)
}

type orderOutput struct {
	EliminationOrder []string `json:"elimination_order"`
	PartialOrder     []string `json:"partial_order"`
}

func newOrderCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "order <diagram.json>",
		Short: "Print the decision elimination order and the partial order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDiagram(args[0])
			if err != nil {
				return err
			}
			mode, err := diagram.ParseMode(a.cfg.Conversion.PartialOrderMode)
			if err != nil {
				return err
			}

			elimination, err := d.EliminationOrder()
			if err != nil {
				return err
			}
			partial, err := d.PartialOrder(mode)
			if err != nil {
				return err
			}

			out := orderOutput{
				EliminationOrder: shortNames(elimination),
				PartialOrder:     shortNames(partial),
			}
			if a.cfg.Output.DefaultFormat == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Elimination order: %v\n", out.EliminationOrder)
			fmt.Fprintf(cmd.OutOrStdout(), "Partial order:     %v\n", out.PartialOrder)
			return nil
		},
	}
}

func newConvertCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "convert <diagram.json>",
		Short: "Convert an influence diagram into a decision tree",
		Long: `Expand an influence diagram along its partial order into a decision tree
and print the tree as nested JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDiagram(args[0])
			if err != nil {
				return err
			}

			cc := a.cfg.Conversion
			conv := conversion.New(
				conversion.WithLogger(a.logger.Named("conversion")),
				conversion.WithReversePush(cc.ReversePush),
				conversion.WithLeafDescription(cc.LeafDescription),
			)
			t, err := conv.Convert(d)
			if err != nil {
				return err
			}
			exported, err := t.Export()
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(exported)
		},
	}
}

func shortNames(nodes []*node.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ShortName
	}
	return out
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"Veritas/internal/domain/models"
	xhttp "Veritas/pkg/http"

	"github.com/spf13/cobra"
)

func newPredictCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "predict",
		Short: "Print the current market assessment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := opts.newService(cmd)
			if err != nil {
				return err
			}
			m, err := svc.Predict(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), m)
		},
	}
}

func newScenarioCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "scenario <name>",
		Short:     "Apply a market scenario (base, stress, bull) to the assessment",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"base", "stress", "bull"},
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.newService(cmd)
			if err != nil {
				return err
			}
			p, err := svc.Scenario(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
}

func newLeverageCmd(opts *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "leverage",
		Short: "Assess a leveraged position snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var req models.LeverageRequest
			if err := readSnapshot(cmd, file, &req); err != nil {
				return err
			}
			svc, err := opts.newService(cmd)
			if err != nil {
				return err
			}
			v, err := svc.AssessLeverage(cmd.Context(), req.Snapshot())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), v)
		},
	}
	addFileFlag(cmd, &file)
	return cmd
}

func newKYCCmd(opts *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "kyc",
		Short: "Assess an investor snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var req models.KYCRequest
			if err := readSnapshot(cmd, file, &req); err != nil {
				return err
			}
			svc, err := opts.newService(cmd)
			if err != nil {
				return err
			}
			v, err := svc.AssessKYC(cmd.Context(), req.Snapshot())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), v)
		},
	}
	addFileFlag(cmd, &file)
	return cmd
}

func newNAVCmd(opts *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "nav",
		Short: "Forecast the NAV of an invoice pool snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var req models.NAVRequest
			if err := readSnapshot(cmd, file, &req); err != nil {
				return err
			}
			svc, err := opts.newService(cmd)
			if err != nil {
				return err
			}
			v, err := svc.ForecastNAV(cmd.Context(), req.Snapshot())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), v)
		},
	}
	addFileFlag(cmd, &file)
	return cmd
}

func addFileFlag(cmd *cobra.Command, file *string) {
	cmd.Flags().StringVarP(file, "file", "f", "", "snapshot JSON file, - for stdin")
	_ = cmd.MarkFlagRequired("file")
}

// readSnapshot decodes the file into req and applies the same validation as the HTTP API.
func readSnapshot(cmd *cobra.Command, file string, req interface{}) error {
	var b []byte
	var err error
	if file == "-" {
		b, err = io.ReadAll(cmd.InOrStdin())
	} else {
		b, err = os.ReadFile(file)
	}
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	if err := json.Unmarshal(b, req); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if verrs := xhttp.ValidateStruct(cmd.Context(), req); len(verrs) > 0 {
		fields := make([]string, 0, len(verrs))
		for _, v := range verrs {
			fields = append(fields, v.Field+": "+v.Message)
		}
		return fmt.Errorf("invalid snapshot: %s", strings.Join(fields, "; "))
	}
	return nil
}

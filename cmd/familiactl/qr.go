package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"familia/internal/qrcode"
)

func newQRCmd() *cobra.Command {
	var (
		output string
		size   int
	)
	cmd := &cobra.Command{
		Use:   "qr <family-id>",
		Short: "Write a family's join QR code as a PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			png, err := qrcode.FamilyJoinPNG(args[0], size)
			if err != nil {
				return err
			}
			if output == "" {
				output = args[0] + ".png"
			}
			if err := os.WriteFile(output, png, 0644); err != nil {
				return fmt.Errorf("failed to write QR code: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s)\n", output, qrcode.JoinPayload(args[0]))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default <family-id>.png)")
	cmd.Flags().IntVar(&size, "size", qrcode.DefaultSize, "image size in pixels")
	return cmd
}

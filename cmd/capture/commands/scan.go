package commands

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"go-invoice-capture/internal/camera"
	"go-invoice-capture/pkg/models"
)

var (
	scanRotate   float64
	scanCrop     string
	scanAutoCrop bool
	scanEnhance  string
	scanReject   bool
	scanFacing   string
)

var scanCmd = &cobra.Command{
	Use:   "scan <image>",
	Short: "Capture an invoice from an image file",
	Long: `Runs an image through the capture pipeline: edit, extract, review and
approve. Approved invoices are queued and uploaded right away when the
endpoint is reachable.`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().Float64Var(&scanRotate, "rotate", 0, "rotate by degrees, positive is clockwise")
	scanCmd.Flags().StringVar(&scanCrop, "crop", "", "crop as x,y,width,height percentages")
	scanCmd.Flags().BoolVar(&scanAutoCrop, "auto-crop", false, "detect the document edges")
	scanCmd.Flags().StringVar(&scanEnhance, "enhance", "", `"recognition" or brightness,contrast,saturation,sharpness`)
	scanCmd.Flags().BoolVar(&scanReject, "reject", false, "reject after review instead of approving")
	scanCmd.Flags().StringVar(&scanFacing, "facing", string(models.FacingEnvironment), "camera facing mode")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	c, err := openClient(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	c.Prober.Probe(ctx)

	m, err := c.NewMachine(camera.NewFileCamera(args[0]))
	if err != nil {
		return err
	}
	if err := m.Start(ctx, models.FacingMode(scanFacing)); err != nil {
		return err
	}
	if err := m.Capture(); err != nil {
		return err
	}

	if scanRotate != 0 {
		if err := m.Rotate(scanRotate); err != nil {
			return err
		}
	}
	if scanAutoCrop {
		found, err := m.AutoCrop()
		if err != nil {
			return err
		}
		if !found {
			fmt.Fprintln(cmd.ErrOrStderr(), "no document edges found, keeping the full frame")
		}
	}
	if scanCrop != "" {
		area, err := parseCrop(scanCrop)
		if err != nil {
			return err
		}
		if err := m.SetCrop(area); err != nil {
			return err
		}
	}
	if scanEnhance != "" {
		params, err := parseEnhancement(scanEnhance)
		if err != nil {
			return err
		}
		if err := m.SetEnhancement(params); err != nil {
			return err
		}
	}

	review, err := m.Submit(ctx)
	if err != nil {
		return err
	}
	out, _ := json.MarshalIndent(review, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	if scanReject {
		return m.Reject(ctx)
	}

	rec, err := m.Approve(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "queued %s\n", rec.ID)

	// no background coordinator runs here, so push now if we can
	if c.Prober.Online() {
		if _, err := c.Coordinator.SyncNow(ctx); err != nil {
			return err
		}
	}
	return nil
}

func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d comma separated numbers, got %q", n, s)
	}
	vals := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", p, err)
		}
		vals[i] = v
	}
	return vals, nil
}

func parseCrop(s string) (models.CropArea, error) {
	v, err := parseFloats(s, 4)
	if err != nil {
		return models.CropArea{}, err
	}
	return models.CropArea{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, nil
}

func parseEnhancement(s string) (models.EnhancementParams, error) {
	switch s {
	case "recognition":
		return models.RecognitionEnhancement(), nil
	case "none", "neutral":
		return models.NeutralEnhancement(), nil
	}
	v, err := parseFloats(s, 4)
	if err != nil {
		return models.EnhancementParams{}, err
	}
	return models.EnhancementParams{Brightness: v[0], Contrast: v[1], Saturation: v[2], Sharpness: v[3]}, nil
}

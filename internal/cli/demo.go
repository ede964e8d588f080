package cli

import (
	"math"

	"github.com/spf13/cobra"

	"github.com/warp-ml/warp/internal/autodiff"
	"github.com/warp-ml/warp/internal/backend/cpu"
	"github.com/warp-ml/warp/internal/config"
	"github.com/warp-ml/warp/internal/grid"
	"github.com/warp-ml/warp/internal/image"
	"github.com/warp-ml/warp/internal/registration"
	"github.com/warp-ml/warp/internal/spatial"
	"github.com/warp-ml/warp/internal/tensor"
)

// demoOpts holds the command-line flags for the demo command.
type demoOpts struct {
	configPath string
	size       int
	shift      float64
}

// demoCommand creates the demo command. It registers a synthetic pair of
// 2D images: the moving image is a Gaussian blob and the fixed image is
// the same blob shifted by a known offset.
func (c *CLI) demoCommand() *cobra.Command {
	opts := demoOpts{size: 32, shift: 3}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a synthetic 2D registration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if opts.configPath != "" {
				loaded, err := config.Load(opts.configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			return c.runDemo(cmd, cfg, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "registration configuration file")
	cmd.Flags().IntVar(&opts.size, "size", 32, "image size per dimension")
	cmd.Flags().Float64Var(&opts.shift, "shift", 3, "ground truth shift in grid units")

	return cmd
}

func (c *CLI) runDemo(cmd *cobra.Command, cfg *config.Config, opts demoOpts) error {
	ad := autodiff.New(cpu.New())
	g := grid.MustNew([]int{opts.size, opts.size})

	moving, err := blobImage(g, 0, ad)
	if err != nil {
		return err
	}
	fixed, err := blobImage(g, opts.shift, ad)
	if err != nil {
		return err
	}

	t, err := spatial.NewConfigurable(cfg.Transform, g, ad, 1)
	if err != nil {
		return err
	}

	engine := registration.New(ad)
	engine.SetLogger(c.Logger)
	result, err := engine.Register(cmd.Context(), fixed, moving, t, cfg.Registration)
	if err != nil {
		return err
	}
	c.Logger.Info("demo finished",
		"loss", result.Loss,
		"iterations", result.Iterations,
		"converged", result.Converged,
	)
	return nil
}

// blobImage renders a Gaussian blob centered at the grid center plus the
// given shift along both axes.
func blobImage(g grid.Grid, shift float64, b tensor.Backend) (image.Image, error) {
	size := g.Size()
	data := make([]float64, size[0]*size[1])
	cx := float64(size[0]-1)/2 + shift
	cy := float64(size[1]-1)/2 + shift
	sigma := float64(size[0]) / 8
	for y := 0; y < size[1]; y++ {
		for x := 0; x < size[0]; x++ {
			dx := float64(x) - cx
			dy := float64(y) - cy
			data[y*size[0]+x] = math.Exp(-(dx*dx + dy*dy) / (2 * sigma * sigma))
		}
	}
	t, err := tensor.FromSlice(data, tensor.Shape{1, 1, size[1], size[0]}, b)
	if err != nil {
		return image.Image{}, err
	}
	return image.New(t, g)
}

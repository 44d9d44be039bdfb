package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gocv.io/x/gocv"

	"ipcam-vision/internal/algorithms"
	"ipcam-vision/internal/core"
	"ipcam-vision/internal/display"
	"ipcam-vision/internal/io"
)

var (
	imageTransform transformFlags
	imageOut       string
	imageShow      bool
)

var imageCmd = &cobra.Command{
	Use:   "image <path>",
	Short: "Apply one transform to a still image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if imageOut == "" && !imageShow {
			return fmt.Errorf("nothing to do: pass --out, --show or both")
		}

		loader := io.NewImageLoader(logger)
		img, err := core.LoadStillImage(loader, args[0])
		if err != nil {
			return err
		}
		defer img.Close()

		result, err := applyStill(cmd, img)
		if err != nil {
			return err
		}
		err = img.Replace(result)
		result.Close()
		if err != nil {
			return err
		}

		if imageOut != "" {
			if err := img.Save(loader, imageOut); err != nil {
				return err
			}
		}
		if imageShow {
			window := display.NewWindow(cfg.Video.WindowName, cfg.StopRune())
			defer window.Close()
			return img.Show(window)
		}
		return nil
	},
}

// applyStill runs the chosen transform through the image's memoized conversions.
func applyStill(cmd *cobra.Command, img *core.StillImage) (gocv.Mat, error) {
	params := imageTransform.params(cmd)
	fields := logrus.Fields{"transform": imageTransform.name, "filepath": img.Filepath()}

	switch imageTransform.name {
	case algorithms.Original:
		return img.Image(), nil
	case algorithms.Grayscale:
		return img.Gray()
	case algorithms.Edges:
		t := algorithms.ThresholdsParam(params)
		if err := t.Validate(); err != nil {
			return gocv.NewMat(), err
		}
		return img.DetectEdges(t)
	case algorithms.AutoEdges:
		edges, t, err := img.AutoEdges(algorithms.SigmaParam(params))
		if err == nil {
			fields["low"], fields["high"] = t.Low, t.High
			logger.WithFields(fields).Info("Automatic thresholds chosen")
		}
		return edges, err
	case algorithms.Faces:
		env, release, err := newEnv(true)
		if err != nil {
			return gocv.NewMat(), err
		}
		defer release()
		out, rects, err := img.DetectFaces(env.Faces)
		if err == nil {
			fields["faces"] = len(rects)
			logger.WithFields(fields).Info("Faces detected")
		}
		return out, err
	case algorithms.ColorFilter:
		r, ok := cfg.Colors[imageTransform.color]
		if !ok {
			return gocv.NewMat(), fmt.Errorf("unknown color preset: %s", imageTransform.color)
		}
		return img.FilterColor(r)
	default:
		return gocv.NewMat(), fmt.Errorf("unknown transform %q, choose one of %v", imageTransform.name, algorithms.Names())
	}
}

func init() {
	imageTransform.register(imageCmd, "grayscale")
	imageCmd.Flags().StringVarP(&imageOut, "out", "o", "", "Save the result to this path (format from extension)")
	imageCmd.Flags().BoolVar(&imageShow, "show", false, "Show the result and wait for a key")
	rootCmd.AddCommand(imageCmd)
}

package main

import (
	"context"

	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/theme"
	"github.com/spf13/cobra"

	"ipcam-vision/internal/algorithms"
	"ipcam-vision/internal/core"
	"ipcam-vision/internal/display"
	"ipcam-vision/internal/gui"
)

var guiCmd = &cobra.Command{
	Use:   "gui",
	Short: "Open the camera address window",
	RunE: func(cmd *cobra.Command, args []string) error {
		transforms := algorithms.Names()
		// The cascade is loaded once and shared by every stream started from the window.
		env, release, err := newEnv(true)
		if err != nil {
			logger.WithError(err).Warn("Face detection unavailable, removing it from the transform list")
			env, release, _ = newEnv(false)
			transforms = withoutTransform(transforms, algorithms.Faces)
		}
		defer release()

		run := func(ctx context.Context, url, transform string, disp display.Display) error {
			fn, err := algorithms.Build(transform, configParams("red"), env)
			if err != nil {
				return err
			}
			_, err = runPipeline(ctx, core.OpenSource(url, logger), fn, disp, streamOptions()...)
			return err
		}

		myApp := app.NewWithID(AppID)
		myApp.SetIcon(theme.MediaPlayIcon())
		myApp.Settings().SetTheme(theme.DefaultTheme())

		mainApp := gui.NewApplication(myApp, cfg, transforms, run, logger)
		mainApp.ShowAndRun()

		logger.Info("Application shutting down gracefully")
		return nil
	},
}

func withoutTransform(names []string, drop string) []string {
	kept := make([]string, 0, len(names))
	for _, n := range names {
		if n != drop {
			kept = append(kept, n)
		}
	}
	return kept
}

func init() {
	rootCmd.AddCommand(guiCmd)
}

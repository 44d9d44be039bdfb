package main

import (
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"ipcam-vision/internal/core"
	"ipcam-vision/internal/display"
	"ipcam-vision/internal/io"
)

var (
	videoTransform transformFlags
	videoRecord    string
	videoHeadless  bool
)

var videoCmd = &cobra.Command{
	Use:   "video <source>",
	Short: "Process a video file, camera device index or stream URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source := args[0]

		fn, release, err := buildTransform(videoTransform.name, videoTransform.params(cmd))
		if err != nil {
			return err
		}
		defer release()

		var outputs display.Multi
		if !videoHeadless {
			outputs = append(outputs, display.NewWindow(cfg.Video.WindowName, cfg.StopRune()))
		}
		if videoRecord != "" {
			outputs = append(outputs, display.NewRecorder(videoRecord, cfg.Video.RecordCodec, cfg.Video.RecordFPS, logger))
		}
		var disp display.Display = display.Headless{}
		if len(outputs) > 0 {
			disp = outputs
		}
		defer func() {
			if err := disp.Close(); err != nil {
				logger.WithError(err).Warn("Closing outputs failed")
			}
		}()

		// Files report their length, so a progress bar is shown for them.
		var bar *progressbar.ProgressBar
		open := func() (io.FrameSource, error) {
			c, err := io.Open(source, logger)
			if err != nil {
				return nil, err
			}
			if n := c.FrameCount(); n > 0 {
				bar = progressbar.NewOptions(n,
					progressbar.OptionSetDescription("Processing"),
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionShowCount(),
				)
			}
			return c, nil
		}
		onFrame := core.WithFrameHook(func(int) {
			if bar != nil {
				_ = bar.Add(1)
			}
		})

		logger.WithFields(logrus.Fields{
			"source":    source,
			"transform": videoTransform.name,
			"record":    videoRecord,
			"headless":  videoHeadless,
		}).Info("Opening video source")

		res, err := runPipeline(cmd.Context(), open, fn, disp, onFrame)
		if bar != nil {
			_ = bar.Finish()
		}
		if res.State == core.StateFinished && videoRecord != "" {
			logger.WithField("record", videoRecord).Info("Recording saved")
		}
		return commandError(err)
	},
}

func init() {
	videoTransform.register(videoCmd, "original")
	videoCmd.Flags().StringVarP(&videoRecord, "record", "r", "", "Write processed frames to this video file")
	videoCmd.Flags().BoolVar(&videoHeadless, "headless", false, "Do not open a window")
	rootCmd.AddCommand(videoCmd)
}

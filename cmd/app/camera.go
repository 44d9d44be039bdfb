package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"ipcam-vision/internal/algorithms"
	"ipcam-vision/internal/core"
	"ipcam-vision/internal/display"
	"ipcam-vision/internal/io"
)

var cameraTransform transformFlags

var cameraCmd = &cobra.Command{
	Use:   "camera <ip> <port>",
	Short: "Process an IP camera stream in an OpenCV window",
	Long:  "Builds the stream URL from the address (http://ip:port/video by default) and shows every processed frame until the stop key is pressed.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		url, err := io.StreamURL(cfg.Stream.Scheme, args[0], args[1], cfg.Stream.Path)
		if err != nil {
			return err
		}

		fn, release, err := buildTransform(cameraTransform.name, cameraTransform.params(cmd))
		if err != nil {
			return err
		}
		defer release()

		window := display.NewWindow(cfg.Video.WindowName, cfg.StopRune())
		defer window.Close()

		logger.WithFields(logrus.Fields{"url": url, "transform": cameraTransform.name}).Info("Opening camera stream")
		_, err = runPipeline(cmd.Context(), core.OpenSource(url, logger), fn, window, streamOptions()...)
		return commandError(err)
	},
}

func init() {
	cameraTransform.register(cameraCmd, algorithms.Faces)
	rootCmd.AddCommand(cameraCmd)
}

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"ipcam-vision/internal/algorithms"
	"ipcam-vision/internal/core"
	"ipcam-vision/internal/display"
	"ipcam-vision/internal/io"
)

// transformFlags are shared by the commands that apply a transform.
type transformFlags struct {
	name  string
	color string
	low   float64
	high  float64
	sigma float64
}

func (f *transformFlags) register(cmd *cobra.Command, defaultName string) {
	cmd.Flags().StringVarP(&f.name, "transform", "t", defaultName, fmt.Sprintf("Transform to apply %v", algorithms.Names()))
	cmd.Flags().StringVar(&f.color, "color", "red", "Color preset for color_filter")
	cmd.Flags().Float64Var(&f.low, "low", algorithms.DefaultLowThreshold, "Lower Canny threshold, overrides edges.low")
	cmd.Flags().Float64Var(&f.high, "high", algorithms.DefaultHighThreshold, "Upper Canny threshold, overrides edges.high")
	cmd.Flags().Float64Var(&f.sigma, "sigma", algorithms.DefaultSigma, "Threshold band around the median for auto_edges, overrides edges.sigma")
}

// configParams are the transform parameters taken from the configuration.
func configParams(preset string) map[string]interface{} {
	return map[string]interface{}{
		"low_threshold":  cfg.Edges.Low,
		"high_threshold": cfg.Edges.High,
		"sigma":          cfg.Edges.Sigma,
		"preset":         preset,
	}
}

// params starts from the configuration and applies the flags the user set.
func (f *transformFlags) params(cmd *cobra.Command) map[string]interface{} {
	p := configParams(f.color)
	if cmd.Flags().Changed("low") {
		p["low_threshold"] = f.low
	}
	if cmd.Flags().Changed("high") {
		p["high_threshold"] = f.high
	}
	if cmd.Flags().Changed("sigma") {
		p["sigma"] = f.sigma
	}
	return p
}

// newEnv loads the face cascade once when a transform needs it.
func newEnv(needFaces bool) (algorithms.Env, func(), error) {
	env := algorithms.Env{Colors: cfg.Colors}
	if !needFaces {
		return env, func() {}, nil
	}

	path, err := algorithms.ResolveCascade(cfg.CascadePath)
	if err != nil {
		return env, func() {}, err
	}
	det, err := algorithms.NewFaceDetector(path, cfg.FaceOptions(), logger)
	if err != nil {
		return env, func() {}, err
	}
	env.Faces = det
	return env, func() {
		if err := det.Close(); err != nil {
			logger.WithError(err).Warn("Releasing face cascade failed")
		}
	}, nil
}

func buildTransform(name string, params map[string]interface{}) (algorithms.Func, func(), error) {
	if !algorithms.IsValidAlgorithm(name) {
		return nil, nil, fmt.Errorf("unknown transform %q, choose one of %v", name, algorithms.Names())
	}
	env, release, err := newEnv(name == algorithms.Faces)
	if err != nil {
		return nil, nil, err
	}
	fn, err := algorithms.Build(name, params, env)
	if err != nil {
		release()
		return nil, nil, err
	}
	return fn, release, nil
}

// streamOptions poll the stop key at the live stream rate instead of the
// video file rate.
func streamOptions() []core.Option {
	return []core.Option{core.WithPollDelay(cfg.Stream.PollDelay)}
}

// runPipeline runs one processing loop and reports how it ended. Options in
// opts win over the video.poll_delay default.
func runPipeline(ctx context.Context, open core.Opener, fn algorithms.Func, disp display.Display, opts ...core.Option) (core.Result, error) {
	opts = append([]core.Option{core.WithPollDelay(cfg.Video.PollDelay)}, opts...)
	p := core.NewPipeline(open, fn, disp, logger, opts...)

	res, err := p.Run(ctx)
	logger.WithFields(logrus.Fields{
		"run_id":  res.RunID,
		"state":   res.State.String(),
		"frames":  res.Frames,
		"elapsed": res.Elapsed.String(),
		"fps":     fmt.Sprintf("%.1f", res.FPS()),
	}).Info("Processing finished")
	return res, err
}

// commandError keeps open failures and real faults fatal. A read failure
// ends the loop like end of stream and is only logged.
func commandError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, io.ErrRead) {
		logger.WithError(err).Warn("Stream ended on a read failure")
		return nil
	}
	return err
}

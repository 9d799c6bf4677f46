package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"

	"vitalia/internal/agent"
	"vitalia/internal/clock"
	"vitalia/internal/escalation"
	"vitalia/internal/models"
	"vitalia/internal/monitor"
	"vitalia/internal/notifier"
	"vitalia/internal/simulator"

	"github.com/spf13/cobra"
)

// simulateOptions 离线模拟参数
type simulateOptions struct {
	Ticks  int
	Seed   int64
	Forced models.ForcedFlags
}

func simulateCmd() *cobra.Command {
	var (
		opts     simulateOptions
		escalate bool
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Generate samples offline and print their classification",
		Long: "Runs the simulator for a number of one-second ticks on a virtual clock. " +
			"With --escalate the configured analysis provider and notifier are used as well.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Ticks <= 0 {
				return fmt.Errorf("--ticks must be positive")
			}
			clk := clock.NewFake(time.Now())
			var controller *escalation.Controller
			if escalate {
				cfg, logger, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				defer logger.Sync()

				provider := agent.NewGemini(agent.GeminiConfig{
					APIKey:  cfg.Gemini.APIKey,
					Model:   cfg.Gemini.Model,
					BaseURL: cfg.Gemini.BaseURL,
					Timeout: cfg.AnalysisTimeout(),
				}, logger)
				// 离线模式不连接 MQTT
				channel := notifier.NewTwilio(notifier.TwilioConfig{
					AccountSID: cfg.Notify.Twilio.AccountSID,
					AuthToken:  cfg.Notify.Twilio.AuthToken,
					FromNumber: cfg.Notify.Twilio.FromNumber,
					BaseURL:    cfg.Notify.Twilio.BaseURL,
					Timeout:    cfg.NotifyTimeout(),
				}, logger)
				controller = escalation.NewController(escalation.Config{
					Cooldown:        cfg.Cooldown(),
					AutoNotify:      cfg.Escalation.AutoSend,
					DoctorAddress:   cfg.Escalation.DoctorPhone,
					AnalysisTimeout: cfg.AnalysisTimeout(),
					NotifyTimeout:   cfg.NotifyTimeout(),
				}, provider, channel, clk, logger)
			}

			return runSimulation(cmd.Context(), cmd.OutOrStdout(), opts, clk, controller)
		},
	}

	cmd.Flags().IntVar(&opts.Ticks, "ticks", 10, "number of one-second ticks to simulate")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "random seed (0 = time based)")
	cmd.Flags().BoolVar(&opts.Forced.HeartRate, "heart-rate", false, "force abnormal heart rate")
	cmd.Flags().BoolVar(&opts.Forced.SpO2, "spo2", false, "force abnormal SpO2")
	cmd.Flags().BoolVar(&opts.Forced.BP, "bp", false, "force abnormal blood pressure")
	cmd.Flags().BoolVar(&opts.Forced.Temperature, "temperature", false, "force abnormal temperature")
	cmd.Flags().BoolVar(&escalate, "escalate", false, "run escalation with the configured provider and notifier")

	return cmd
}

// runSimulation 在虚拟时钟上跑 opts.Ticks 个 tick；controller 为 nil 时只分类不升级
func runSimulation(ctx context.Context, w io.Writer, opts simulateOptions, clk *clock.Fake, controller *escalation.Controller) error {
	if ctx == nil {
		ctx = context.Background()
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	sim := simulator.NewSimulator(rand.New(rand.NewSource(seed)), clk)

	for i := 0; i < opts.Ticks; i++ {
		if i > 0 {
			clk.Advance(time.Second)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		sample := sim.Generate(opts.Forced)
		result := monitor.Classify(sample)
		fmt.Fprintln(w, formatLine(sample, result))

		if controller == nil {
			continue
		}
		outcome := controller.Process(ctx, sample, result)
		if len(outcome.Events) > 0 {
			fmt.Fprintf(w, "  [%s] %s\n", outcome.Phase, strings.Join(outcome.Events, ", "))
		}
		if outcome.Analysis != nil {
			fmt.Fprintf(w, "  patient advice: %s\n", outcome.Analysis.PatientAdvice)
			fmt.Fprintf(w, "  doctor report: %s\n", outcome.Analysis.DoctorReport)
			fmt.Fprintf(w, "  emergency: %t\n", outcome.Analysis.Emergency)
		}
		if outcome.Notification != nil {
			fmt.Fprintf(w, "  notification: %s\n", outcome.Notification.Message)
		}
	}

	return nil
}

func formatLine(s models.VitalsSample, r models.ClassificationResult) string {
	line := fmt.Sprintf("%s  HR %d bpm  SpO2 %d%%  BP %d/%d mmHg  Temp %.1f°C  %s",
		s.Timestamp, s.HeartRate, s.SpO2, s.SysBP, s.DiaBP, s.Temperature, r.Status)
	if r.IsAbnormal() {
		line += "  (" + strings.Join(r.Abnormalities, "; ") + ")"
	}
	return line
}

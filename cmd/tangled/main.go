package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	charmlog "github.com/charmbracelet/log"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/lox/tangled/internal/monitor"
	"github.com/lox/tangled/internal/params"
	"github.com/lox/tangled/internal/statistics"
	"github.com/lox/tangled/tpg"
)

var cli struct {
	Debug bool `help:"enable debug logging"`

	Train    TrainCmd    `cmd:"" help:"evolve a tangled program graph population on the demo task"`
	Validate ValidateCmd `cmd:"" help:"parse and validate a params file"`
}

type TrainCmd struct {
	Params      string  `help:"path to an HCL params file" default:"tangled.hcl"`
	Generations int     `help:"number of generations to run" default:"100"`
	PopSize     int     `help:"override the team population size (0 keeps the params value)" default:"0"`
	Seed        int64   `help:"random seed; 0 uses time seed" default:"0"`
	Registers   int     `help:"registers per learner" default:"5"`
	Actions     []int64 `help:"atomic action codes" default:"1,2,3,4,5,6"`
	Target      int64   `help:"action code rewarded with +100 (others score -100)" default:"2"`
	Task        string  `help:"task identifier for outcome recording" default:"t1"`
	State       []int64 `help:"input state vector" default:"1,1,1,1"`
	Monitor     string  `help:"address to serve generation updates on (empty disables)"`
}

type ValidateCmd struct {
	Params string `arg:"" help:"path to an HCL params file"`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("tangled"),
		kong.Description("Tangled Program Graph evolution tooling"),
		kong.UsageOnError(),
	)

	setupLogger(cli.Debug)

	switch ctx.Command() {
	case "train":
		if err := cli.Train.Run(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("training failed")
		}
	case "validate <params>":
		if err := cli.Validate.Run(); err != nil {
			log.Fatal().Err(err).Msg("validation failed")
		}
	default:
		log.Fatal().Msgf("unknown command: %s", ctx.Command())
	}
}

func setupLogger(debug bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

func engineLogger(debug bool) *charmlog.Logger {
	level := charmlog.InfoLevel
	if debug {
		level = charmlog.DebugLevel
	}
	return charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		Level:           level,
		ReportTimestamp: true,
	})
}

func (c *TrainCmd) Run(ctx context.Context) error {
	p, err := params.Load(c.Params)
	if err != nil {
		return err
	}
	if c.PopSize > 0 {
		p.Trainer.MaxTeamInPopulation = c.PopSize
	}
	if int64(len(c.State)) < p.Trainer.Team.Learner.Program.InputSize {
		return fmt.Errorf("state vector length %d is below input size %d",
			len(c.State), p.Trainer.Team.Learner.Program.InputSize)
	}

	engineLog := engineLogger(cli.Debug)

	brain := tpg.NewBrain()
	brain.Log = engineLog

	trainer, err := tpg.NewTrainer(&p.Trainer, c.Registers, c.Seed, engineLog)
	if err != nil {
		return err
	}
	trainer.SetUpActions(c.Actions)
	trainer.InitializePopulations(brain)
	log.Info().Int("teams", trainer.NumTeams()).Msg("population initialized")

	mon := monitor.NewServer(engineLog)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, runCtx := errgroup.WithContext(runCtx)
	if c.Monitor != "" {
		g.Go(func() error {
			return mon.ListenAndServe(runCtx, c.Monitor)
		})
		log.Info().Str("addr", c.Monitor).Msg("monitor listening")
	}

	stats := &statistics.Statistics{}

	g.Go(func() error {
		defer cancel()
		for gen := 0; gen < c.Generations; gen++ {
			select {
			case <-runCtx.Done():
				return runCtx.Err()
			default:
			}

			agents := trainer.GetAgents(brain, nil, nil)
			var best, sum int64
			for i, agent := range agents {
				code := agent.Act(brain, c.State)
				score := int64(-100)
				if code == c.Target {
					score = 100
				}
				agent.Reward(brain, score, c.Task)
				sum += score
				if i == 0 || score > best {
					best = score
				}
			}

			result := statistics.GenerationResult{
				Generation: gen,
				BestScore:  best,
				MeanScore:  float64(sum) / float64(max(len(agents), 1)),
				Teams:      trainer.NumTeams(),
				RootTeams:  len(trainer.RootTeams),
				Learners:   len(trainer.Learners),
			}
			stats.Record(c.Task, result)
			mon.Publish(monitor.GenerationUpdate{
				Generation: gen,
				Task:       c.Task,
				BestScore:  best,
				Teams:      result.Teams,
				RootTeams:  result.RootTeams,
				Learners:   result.Learners,
			})
			log.Debug().Int("generation", gen).Int64("best", best).Msg("generation evaluated")

			trainer.Evolve(brain, []string{c.Task}, nil)
		}
		return nil
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}

	fmt.Print(stats.Summary())
	return nil
}

func (c *ValidateCmd) Run() error {
	p, err := params.Load(c.Params)
	if err != nil {
		return err
	}
	log.Info().
		Int("max_learner_in_team", p.Trainer.MaxLearnerInTeam).
		Int("max_team_in_population", p.Trainer.MaxTeamInPopulation).
		Msg("params file is valid")
	return nil
}

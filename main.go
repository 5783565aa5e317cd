package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/Ramcharan10122005/self-healing/healmon"
	"github.com/Ramcharan10122005/self-healing/healmon/cooldown"
	"github.com/Ramcharan10122005/self-healing/healmon/journal"
	"github.com/Ramcharan10122005/self-healing/healmon/notify"
	"github.com/Ramcharan10122005/self-healing/healmon/proc"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	configFile string
	foreground bool
)

var rootCmd = &cobra.Command{
	Use:   "healmon",
	Short: "healmon keeps a list of processes alive, restarting them when they crash",
	Long: "healmon watches the processes named in its process list, restarts\n" +
		"the ones that die from crash signals, and leaves the ones that were\n" +
		"exited deliberately alone until they are started again by hand.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !foreground {
			return daemonize()
		}
		return start()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "print the last known state of each monitored process",
	RunE: func(cmd *cobra.Command, args []string) error {
		return status()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path (defaults to the user config directory)")
	rootCmd.Flags().BoolVarP(&foreground, "foreground", "f", false,
		"stay in the foreground instead of daemonizing")
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (healmon.Config, error) {
	path := configFile
	if path == "" {
		path = healmon.DefaultConfigPath()
	}
	return healmon.LoadConfig(path)
}

// daemonize re-executes the binary in the background with --foreground set,
// in a fresh session so the daemon outlives the launching terminal.
func daemonize() error {
	args := []string{"--foreground"}
	if configFile != "" {
		args = append(args, "--config", configFile)
	}

	cmd := exec.Command(os.Args[0], args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return errors.Wrap(err, "failed to start daemon")
	}

	log.Println("healmon daemon started with PID", cmd.Process.Pid)
	return cmd.Process.Release()
}

func start() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	j, err := journal.NewFileLockJournaler(cfg.Journal)
	if err != nil {
		if errors.Is(err, journal.ErrLockedElsewhere) {
			// Non-fatal error.
			log.Println("healmon is already running")
			return nil
		}

		return errors.Wrap(err, "failed to acquire journal lock")
	}
	defer j.Close()

	prev, err := j.PreviousState()
	if err != nil {
		return errors.Wrap(err, "failed to recover previous state")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	journaler := journal.MultiWriter(j, journal.NewHumanWriter(os.Stderr))
	journaler.Write(&healmon.EventAcquired{PID: os.Getpid()})

	table := &proc.Table{}

	limiter := cooldown.New(cfg.Cooldown.StateFile)
	if cfg.Cooldown.MaxRestarts > 0 {
		limiter.MaxRestarts = cfg.Cooldown.MaxRestarts
	}
	if cfg.Cooldown.Window.Duration > 0 {
		limiter.Window = cfg.Cooldown.Window.Duration
	}
	if cfg.Cooldown.Duration.Duration > 0 {
		limiter.Cooldown = cfg.Cooldown.Duration.Duration
	}

	rec := healmon.NewReconciler(table, limiter, notify.NewEmail(cfg.Email, journaler), journaler)

	sup := healmon.NewSupervisor(cfg.ProcessList, table, rec, journaler)
	sup.PollInterval = cfg.PollInterval.Duration
	sup.AdoptPrevious(prev)

	sup.Run(ctx)
	return nil
}

// status prints the newest journal-recorded state per process plus cooldown
// bookkeeping. It reads without the journal lock, so it works while a
// supervisor runs.
func status() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	prev, err := journal.ReadPreviousStateFromFile(cfg.Journal)
	if err != nil {
		return errors.Wrap(err, "failed to read journal")
	}

	if len(prev) == 0 {
		fmt.Println("no monitored processes recorded")
		return nil
	}

	names := make([]string, 0, len(prev))
	for name := range prev {
		names = append(names, name)
	}
	sort.Strings(names)

	limiter := cooldown.New(cfg.Cooldown.StateFile)

	for _, name := range names {
		p := prev[name]

		var state string
		switch {
		case p.Suppressed:
			state = "exited normally, not monitored"
		case p.PID > 0:
			state = fmt.Sprintf("last seen as PID %d", p.PID)
		default:
			state = "not running"
		}

		if s := limiter.Status(name); s.InCooldown {
			state += fmt.Sprintf(", in cooldown for %v", s.Remaining.Round(time.Second))
		} else if s.Attempts > 0 {
			state += fmt.Sprintf(", %d recent restart(s)", s.Attempts)
		}

		fmt.Printf("%s: %s\n", name, state)
	}

	return nil
}

package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/oshokin/study-store/internal/config"
	"github.com/oshokin/study-store/internal/domain/study"
	"github.com/oshokin/study-store/internal/logger"
)

// Options controls how a command loads its configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// Backend overrides the backend from the config when not empty.
	Backend string
	// Directory overrides the save directory when not empty.
	Directory string
	// Output receives command results.
	Output io.Writer
}

// errBadOptionSpec is returned for option arguments not shaped like name=taken/encountered.
var errBadOptionSpec = errors.New("option must look like name=taken/encountered")

// RunRecord stores a study built from option specs such as "heads=3/5".
func RunRecord(ctx context.Context, opts *Options, description string, specs []string) error {
	options := make([]study.Option, 0, len(specs))

	for _, spec := range specs {
		option, err := ParseOptionSpec(spec)
		if err != nil {
			return err
		}

		options = append(options, option)
	}

	return withService(ctx, opts, func(ctx context.Context, svc *Service) error {
		recorded := study.New(description, options...)
		if err := svc.Record(ctx, recorded); err != nil {
			return err
		}

		return PrintStudies(opts.Output, []study.Study{recorded})
	})
}

// RunObserve counts one decision between offered options.
func RunObserve(ctx context.Context, opts *Options, description, taken string, offered []string) error {
	return withService(ctx, opts, func(ctx context.Context, svc *Service) error {
		updated, err := svc.Observe(ctx, description, taken, offered...)
		if err != nil {
			return err
		}

		return PrintStudies(opts.Output, []study.Study{updated})
	})
}

// RunList prints every stored study.
func RunList(ctx context.Context, opts *Options) error {
	return withService(ctx, opts, func(ctx context.Context, svc *Service) error {
		found, err := svc.List(ctx)
		if err != nil {
			return err
		}

		return PrintStudies(opts.Output, found)
	})
}

// RunWatch prints the stored studies every time the save directory changes, until ctx is done.
func RunWatch(ctx context.Context, opts *Options, debounce time.Duration) error {
	return withService(ctx, opts, func(ctx context.Context, svc *Service) error {
		return svc.Watch(ctx, debounce, func(found []study.Study) {
			_, _ = fmt.Fprintf(opts.Output, "--- %s\n", time.Now().Format(time.RFC3339))

			if err := PrintStudies(opts.Output, found); err != nil {
				logger.ErrorKV(ctx, "Failed to print studies", "error", err)
			}
		})
	})
}

// ParseOptionSpec parses "name=taken/encountered". A bare "name" has zero counters.
func ParseOptionSpec(spec string) (study.Option, error) {
	name, counters, hasCounters := strings.Cut(spec, "=")
	if name == "" {
		return study.Option{}, fmt.Errorf("%w: %q", errBadOptionSpec, spec)
	}

	option := study.Option{Description: name}
	if !hasCounters {
		return option, nil
	}

	takenText, encounteredText, ok := strings.Cut(counters, "/")
	if !ok {
		return study.Option{}, fmt.Errorf("%w: %q", errBadOptionSpec, spec)
	}

	taken, err := strconv.Atoi(takenText)
	if err != nil || taken < 0 {
		return study.Option{}, fmt.Errorf("%w: %q", errBadOptionSpec, spec)
	}

	encountered, err := strconv.Atoi(encounteredText)
	if err != nil || encountered < 0 {
		return study.Option{}, fmt.Errorf("%w: %q", errBadOptionSpec, spec)
	}

	option.TimesTaken = taken
	option.TimesEncountered = encountered

	return option, nil
}

// PrintStudies writes studies sorted by description, one option per indented line.
func PrintStudies(w io.Writer, found []study.Study) error {
	sorted := slices.Clone(found)
	slices.SortFunc(sorted, func(a, b study.Study) int {
		return strings.Compare(a.Description, b.Description)
	})

	var b strings.Builder

	for _, s := range sorted {
		fmt.Fprintf(&b, "%s\n", s.Description)

		for _, option := range s.Options.Options() {
			fmt.Fprintf(&b, "  %s: taken %d of %d\n", option.Description, option.TimesTaken, option.TimesEncountered)
		}
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write studies: %w", err)
	}

	return nil
}

func withService(ctx context.Context, opts *Options, fn func(context.Context, *Service) error) error {
	ctx = logger.WithName(ctx, "study-store")

	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if opts.Backend != "" {
		cfg.Backend = config.Backend(opts.Backend)
	}

	if opts.Directory != "" {
		cfg.Directory = opts.Directory
	}

	if err = config.Validate(cfg); err != nil {
		return fmt.Errorf("validate settings: %w", err)
	}

	if cfg.Backend == config.BackendMemory {
		return ErrEphemeralBackend
	}

	if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	}

	svc, err := Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open study store: %w", err)
	}

	defer func() {
		if closeErr := svc.Close(); closeErr != nil {
			logger.ErrorKV(ctx, "Failed to close study store", "error", closeErr)
		}
	}()

	return fn(ctx, svc)
}

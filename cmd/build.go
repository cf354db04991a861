package cmd

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"go-content/builder"
	"go-content/config"
	"go-content/log"
	"go-content/resource"
)

var flagPlatform string

var buildCmd = &cobra.Command{
	Use:   "build [packages...]",
	Short: "Build packages in the project",
	Long: `Build the named packages (all enumerated packages if none are given)
for the requested platform. Unchanged resources are skipped.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&flagPlatform, "platform", "", "target platform (default: each package's existing targets, or generic)")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(flagConfigDir, flagProfile)
	if err != nil {
		return err
	}
	if cfg.LogsPath == "" {
		cfg.LogsPath = filepath.Join(flagProject, "logs")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	osname, osversion, arch, ncpus := config.GetSystemInfo()
	fmt.Printf("go-content on %s %s (%s, %d cpus)\n", osname, osversion, arch, ncpus)

	logger, err := log.NewLogger(cfg.LogsPath, cfg.Debug)
	if err != nil {
		return err
	}
	defer logger.Close()

	pb, err := builder.NewProjectBuilder(flagProject, log.StdoutLogger{}, &builder.Callbacks{
		Ready: func() { fmt.Println("Compiler pool ready") },
	})
	if err != nil {
		return err
	}

	// Pipeline entries that don't pin their own restart policy inherit
	// the configured defaults.
	for route, spec := range pb.Project.Pipeline {
		if spec.MaxRestartCount == 0 {
			spec.MaxRestartCount = cfg.MaxRestartCount
		}
		if cfg.SuppressWorkerStdio {
			spec.SuppressStdio = true
		}
		pb.Project.Pipeline[route] = spec
	}

	if err := pb.Start(); err != nil {
		return err
	}
	defer pb.Dispose()

	names := args
	if len(names) == 0 {
		for name := range pb.Project.Packages {
			names = append(names, name)
		}
		sort.Strings(names)
	}
	if len(names) == 0 {
		return fmt.Errorf("project has no packages")
	}

	allOK := true
	for _, name := range names {
		pkg, err := pb.Project.Package(name)
		if err != nil {
			return err
		}

		platforms := []string{flagPlatform}
		if flagPlatform == "" {
			platforms, err = pkg.Targets()
			if err != nil {
				return err
			}
			if len(platforms) == 0 {
				platforms = []string{resource.GenericPlatform}
			}
		}

		for _, platform := range platforms {
			ok, err := buildOne(pb, name, platform, logger)
			if err != nil {
				return err
			}
			if !ok {
				allOK = false
			}
		}
	}

	if !allOK {
		return fmt.Errorf("build finished with errors")
	}
	return nil
}

func buildOne(pb *builder.ProjectBuilder, name, platform string, logger *log.Logger) (bool, error) {
	events := &builder.Events{
		Start: func(pkgName, platform string) {
			fmt.Printf("Building %s (%s)...\n", pkgName, platform)
			logger.Info(fmt.Sprintf("build started: %s (%s)", pkgName, platform))
		},
		Compile: func(sourcePath, targetPath string) {
			logger.Info(fmt.Sprintf("compiling: %s", sourcePath))
		},
		Success: func(sourcePath string) {
			logger.Success(sourcePath)
		},
		Ignore: func(sourcePath, reason string) {
			logger.Skipped(sourcePath, reason)
		},
		Error: func(sourcePath string, errs []string) {
			logger.Failed(sourcePath, errs)
		},
		Finish: func(res builder.Result) {
			logger.WriteSummary(res.Package, res.Platform, res.Total, res.Built, res.Errors, res.Skipped, res.Duration)
			fmt.Printf("  %d built, %d failed, %d skipped (%s)\n",
				res.Built, res.Errors, res.Skipped, res.Duration.Round(time.Millisecond))
		},
	}

	packageBuilder, err := pb.PackageBuilder(name, events)
	if err != nil {
		return false, err
	}
	res, err := packageBuilder.Build(platform)
	if err != nil {
		return false, err
	}
	return res.Success, nil
}

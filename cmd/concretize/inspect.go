package main

import (
	"fmt"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"concretize/internal/callindex"
	"concretize/internal/harvest"
	"concretize/internal/meta"
	"concretize/internal/pipeline"
)

var indexCmd = &cobra.Command{
	Use:   "index [flags] [module files...]",
	Short: "List call sites by called method",
	RunE:  indexExecution,
}

var harvestCmd = &cobra.Command{
	Use:   "harvest [flags] [module files...]",
	Short: "List the concrete generic instances the modules construct",
	RunE:  harvestExecution,
}

var dumpCmd = &cobra.Command{
	Use:   "dump [flags] <module file>",
	Short: "Print the contents of a module file",
	Args:  cobra.ExactArgs(1),
	RunE:  dumpExecution,
}

func init() {
	addModuleFlags(indexCmd)
	indexCmd.Flags().Bool("plain", false, "index every call, not only calls into generic code")
	indexCmd.Flags().String("filter", "", "only show callees whose name contains this text")
	indexCmd.Flags().Int("jobs", 0, "max parallel jobs (0=auto)")

	addModuleFlags(harvestCmd)
	harvestCmd.Flags().Int("jobs", 0, "max parallel jobs (0=auto)")

	dumpCmd.Flags().Bool("bodies", false, "include method bodies")
	dumpCmd.Flags().Bool("raw", false, "print the decoded structures as Go values")
}

// loadSelected loads the modules named by args and the module flags.
func loadSelected(cmd *cobra.Command, args []string) (*pipeline.Loaded, error) {
	mf, err := readModuleFlags(cmd)
	if err != nil {
		return nil, err
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return nil, err
	}
	cfg, _, err := loadConfig(mf.configPath)
	if err != nil {
		return nil, err
	}
	paths, err := selectModules(args, cfg.Modules, mf)
	if err != nil {
		return nil, err
	}
	return pipeline.Load(cmd.Context(), paths, jobs, nil)
}

func indexExecution(cmd *cobra.Command, args []string) error {
	plain, err := cmd.Flags().GetBool("plain")
	if err != nil {
		return err
	}
	filter, err := cmd.Flags().GetString("filter")
	if err != nil {
		return err
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return err
	}
	loaded, err := loadSelected(cmd, args)
	if err != nil {
		return err
	}

	extract := callindex.GenericOnly
	if plain {
		extract = callindex.Plain
	}
	reg := meta.NewRegistry(loaded.Modules...)
	idx, err := callindex.Build(cmd.Context(), reg, loaded.Modules, extract, callindex.Options{Jobs: jobs})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, callee := range idx.Keys() {
		name := callee.OwnerName()
		if filter != "" && !strings.Contains(name, filter) {
			continue
		}
		sites, _ := idx.Callers(callee)
		fmt.Fprintf(out, "%s (%d sites)\n", name, len(sites))
		for _, s := range sites {
			fmt.Fprintf(out, "  <- %s : %s\n", s.Caller.OwnerName(), s.Ref.DeclaringType.FullName())
		}
	}
	return nil
}

func harvestExecution(cmd *cobra.Command, args []string) error {
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return err
	}
	loaded, err := loadSelected(cmd, args)
	if err != nil {
		return err
	}
	pool, err := harvest.Modules(cmd.Context(), loaded.Modules, harvest.Options{Jobs: jobs})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, t := range pool.Types() {
		fmt.Fprintln(out, t.FullName())
	}
	return nil
}

func dumpExecution(cmd *cobra.Command, args []string) error {
	bodies, err := cmd.Flags().GetBool("bodies")
	if err != nil {
		return err
	}
	raw, err := cmd.Flags().GetBool("raw")
	if err != nil {
		return err
	}
	mod, err := meta.LoadFile(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if raw {
		cfg := spew.ConfigState{
			Indent:                  "  ",
			DisablePointerAddresses: true,
			DisableCapacities:       true,
			SortKeys:                true,
		}
		cfg.Fdump(out, mod)
		return nil
	}
	return meta.Dump(out, mod, meta.DumpOptions{Bodies: bodies})
}

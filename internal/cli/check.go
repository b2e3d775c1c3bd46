package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forPelevin/ycsp/internal/config"
	"github.com/forPelevin/ycsp/internal/deps"
	"github.com/forPelevin/ycsp/internal/ports/adapters/ytdlp"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "check",
		Short:         "Report whether yt-dlp, ffmpeg and ffprobe are available",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			cfg, _, _, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}

			statuses := deps.CheckBinaries(deps.Requirements(cfg.Tools.YtDlp, cfg.Tools.FFmpeg, cfg.Tools.FFprobe))
			rows := make([][]string, 0, len(statuses))
			for _, s := range statuses {
				state := "ok"
				detail := s.Path
				switch {
				case !s.Available && s.Optional:
					state, detail = "missing (optional)", s.Detail
				case !s.Available:
					state, detail = "missing", s.Detail
				case s.Name == "yt-dlp":
					if v, err := ytdlp.New(ytdlp.Options{Bin: s.Path}).Version(cmd.Context()); err == nil {
						detail = fmt.Sprintf("%s (%s)", s.Path, v)
					}
				}
				rows = append(rows, []string{s.Name, state, detail, s.Description})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(out,
				[]string{"Tool", "Status", "Detail", "Used for"},
				rows,
				nil,
			))

			if missing := deps.MissingRequired(statuses); len(missing) > 0 {
				return fmt.Errorf("missing required dependencies: %s", strings.Join(missing, ", "))
			}
			return nil
		},
	}
	cmd.Flags().String("config", "", "Config file (.toml or .yaml)")
	return cmd
}

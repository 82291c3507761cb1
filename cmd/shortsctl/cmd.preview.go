package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"shorts_farm/internal/captions"
	"shorts_farm/internal/timeline"
)

func newTimelineCmd() *cobra.Command {
	var fps int
	cmd := &cobra.Command{
		Use:   "timeline <script-file>",
		Short: "Compile a script into the render timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := readScriptFile(args[0])
			if err != nil {
				return err
			}
			tl := timeline.Compile(script, fps)
			logrus.WithFields(logrus.Fields{
				"scenes":      len(tl.Scenes),
				"totalFrames": tl.TotalFrames,
			}).Debug("Compiled timeline")
			return printJSON(cmd.OutOrStdout(), tl)
		},
	}
	cmd.Flags().IntVar(&fps, "fps", timeline.DefaultFPS, "frames per second")
	return cmd
}

// captionsOutput toàn bộ trang, hoặc thêm phần hiển thị khi có --frame
type captionsOutput struct {
	Pages   []captions.Page   `json:"pages"`
	Frame   *int              `json:"frame,omitempty"`
	Display *captions.Display `json:"display,omitempty"`
}

func newCaptionsCmd() *cobra.Command {
	var (
		fps          int
		frame        int
		maxChars     int
		linesPerPage int
	)
	cmd := &cobra.Command{
		Use:   "captions <script-file>",
		Short: "Show caption pages, or what is on screen at --frame",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := readScriptFile(args[0])
			if err != nil {
				return err
			}
			if len(script.Captions) == 0 {
				return fmt.Errorf("script has no captions")
			}
			opts := captions.DefaultOptions()
			opts.MaxCharsPerLine = maxChars
			opts.LinesPerPage = linesPerPage
			pager := captions.NewPaginator(script.Captions, fps, opts)

			out := captionsOutput{Pages: pager.Pages()}
			if cmd.Flags().Changed("frame") {
				if frame < 0 {
					return fmt.Errorf("frame must be non-negative")
				}
				out.Frame = &frame
				out.Display = pager.At(frame)
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().IntVar(&fps, "fps", timeline.DefaultFPS, "frames per second")
	cmd.Flags().IntVar(&frame, "frame", 0, "frame to preview")
	cmd.Flags().IntVar(&maxChars, "max-chars", captions.DefaultMaxCharsPerLine, "max characters per caption line")
	cmd.Flags().IntVar(&linesPerPage, "lines", captions.DefaultLinesPerPage, "visible lines per page")
	return cmd
}

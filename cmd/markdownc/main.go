// Command markdownc converts Markdown to HTML or normalized CommonMark
// and serves directories of Markdown for live preview.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	commonmark "git.home.luguber.info/inful/commonmark"
	"git.home.luguber.info/inful/commonmark/internal/preview"
)

var CLI struct {
	Verbose bool `short:"v" help:"Enable verbose logging"`

	Convert ConvertCmd `cmd:"" default:"withargs" help:"Convert a Markdown file (or stdin) to HTML or CommonMark"`
	Serve   ServeCmd   `cmd:"" help:"Serve a directory of Markdown with live preview"`
}

// ConvertCmd renders one document to the selected format.
type ConvertCmd struct {
	File   string `arg:"" optional:"" help:"Input file (stdin when omitted)"`
	To     string `default:"html" enum:"html,commonmark" help:"Output format (html or commonmark)"`
	Output string `short:"o" help:"Output file (stdout when omitted)"`

	Strikethrough    bool   `help:"Enable ~~strikethrough~~"`
	Tagfilter        bool   `help:"Escape risky raw HTML tags"`
	Table            bool   `help:"Enable pipe tables"`
	Autolink         bool   `help:"Link bare URLs, www domains and emails"`
	Tasklist         bool   `help:"Enable task list items"`
	Superscript      bool   `help:"Enable ^superscript^"`
	Footnotes        bool   `help:"Enable footnotes"`
	DescriptionLists bool   `help:"Enable description lists"`
	Gfm              bool   `help:"Shorthand for the GitHub extension set"`
	HeaderIds        string `help:"Add heading anchors with this id prefix" default:"-"`
	FrontMatter      string `help:"Recognize front matter fenced by this delimiter" default:"-"`

	Smart         bool `help:"Smart quotes, dashes and ellipses"`
	Hardbreaks    bool `help:"Render soft breaks as hard breaks"`
	GithubPreLang bool `help:"Use <pre lang=\"...\"> for code blocks"`
	Width         int  `help:"Wrap CommonMark output at this column (0 disables)" default:"0"`
	Unsafe        bool `help:"Pass raw HTML and dangerous URLs through"`
	Escape        bool `help:"Escape raw HTML instead of omitting it"`
	Sourcepos     bool `help:"Add data-sourcepos attributes to blocks"`
}

// ServeCmd runs the preview server.
type ServeCmd struct {
	Dir          string `arg:"" optional:"" default:"." help:"Directory to serve"`
	Host         string `default:"127.0.0.1" help:"Bind address"`
	Port         int    `default:"8080" help:"Listen port"`
	NoLivereload bool   `help:"Disable the file watcher and reload socket"`
}

func (c *ConvertCmd) options() *commonmark.Options {
	opts := &commonmark.Options{}
	opts.Extension.Strikethrough = c.Strikethrough || c.Gfm
	opts.Extension.Tagfilter = c.Tagfilter || c.Gfm
	opts.Extension.Table = c.Table || c.Gfm
	opts.Extension.Autolink = c.Autolink || c.Gfm
	opts.Extension.Tasklist = c.Tasklist || c.Gfm
	opts.Extension.Superscript = c.Superscript
	opts.Extension.Footnotes = c.Footnotes
	opts.Extension.DescriptionLists = c.DescriptionLists
	if c.HeaderIds != "-" {
		prefix := c.HeaderIds
		opts.Extension.HeaderIDs = &prefix
	}
	if c.FrontMatter != "-" {
		delim := c.FrontMatter
		opts.Extension.FrontMatterDelimiter = &delim
	}
	opts.Parse.Smart = c.Smart
	opts.Render.Hardbreaks = c.Hardbreaks
	opts.Render.GithubPreLang = c.GithubPreLang
	opts.Render.Width = c.Width
	opts.Render.UnsafeRaw = c.Unsafe
	opts.Render.Escape = c.Escape
	opts.Render.SourcePos = c.Sourcepos
	return opts
}

func (c *ConvertCmd) Run() error {
	var src []byte
	var err error
	if c.File == "" {
		src, err = io.ReadAll(os.Stdin)
	} else {
		src, err = os.ReadFile(c.File)
	}
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	var out string
	switch c.To {
	case "commonmark":
		out, err = commonmark.ToCommonMark(src, c.options())
	default:
		out, err = commonmark.ToHTML(src, c.options())
	}
	if err != nil {
		return err
	}

	if c.Output == "" {
		_, err = os.Stdout.WriteString(out)
		return err
	}
	return os.WriteFile(c.Output, []byte(out), 0o644)
}

func (c *ServeCmd) Run() error {
	srv, err := preview.NewServer(preview.Config{
		Host:       c.Host,
		Port:       c.Port,
		RootDir:    c.Dir,
		LiveReload: !c.NoLivereload,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("markdownc"),
		kong.Description("CommonMark converter and preview server"))

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := ctx.Run(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

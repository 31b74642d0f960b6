package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"

	restapi "github.com/hedisam/assetd/client/api/rest"
)

type Options struct {
	ServerAddr string
	Verbose    bool
}

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	var opts Options
	flag.StringVar(&opts.ServerAddr, "server-addr", "http://localhost:5000", "Asset server address to connect to.")
	flag.BoolVar(&opts.Verbose, "v", false, "Verbose output")
	flag.Usage = usage
	flag.Parse()

	if opts.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	restClient, err := restapi.NewClient(logger, opts.ServerAddr)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create rest client")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd, args := flag.Arg(0), flag.Args()[1:]
	switch cmd {
	case "upload":
		err = upload(ctx, restClient, args)
	case "fetch":
		err = fetch(ctx, restClient, args)
	case "sample":
		err = sample(ctx, restClient)
	default:
		flag.Usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", cmd, err)
		os.Exit(1)
	}
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage: %s [flags] <command> [args]\n\n", filepath.Base(os.Args[0]))
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  upload FILE...   upload up to 10 image files")
	fmt.Fprintln(out, "  fetch URL        have the server download and store an image")
	fmt.Fprintln(out, "  sample           print the URLs of a random selection of images")
	fmt.Fprintln(out, "\nFlags:")
	flag.PrintDefaults()
}

func upload(ctx context.Context, c *restapi.Client, paths []string) error {
	if len(paths) == 0 {
		return errors.New("at least one file is required")
	}

	files := make([]restapi.UploadFile, 0, len(paths))
	for _, p := range paths {
		content, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %q: %w", p, err)
		}
		files = append(files, restapi.UploadFile{Name: filepath.Base(p), Content: content})
	}

	resp, err := c.Upload(ctx, files)
	if resp != nil {
		for _, f := range resp.Files {
			if f.Error != "" {
				fmt.Printf("FAILED  %s: %s\n", f.OriginalName, f.Error)
				continue
			}
			fmt.Printf("OK      %s -> %s\n", f.OriginalName, f.URL)
		}
	}
	return err
}

func fetch(ctx context.Context, c *restapi.Client, args []string) error {
	if len(args) != 1 {
		return errors.New("exactly one url is required")
	}

	resp, err := c.Fetch(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s -> %s\n", resp.Message, resp.File, resp.URL)
	return nil
}

func sample(ctx context.Context, c *restapi.Client) error {
	urls, err := c.Sample(ctx)
	if err != nil {
		return err
	}
	for _, u := range urls {
		fmt.Println(u)
	}
	return nil
}

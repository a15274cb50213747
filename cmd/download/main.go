package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/stardustagi/HoloServe/utils"
	"github.com/stardustagi/HoloServe/vlm"
)

// download 预下载模型权重到本地缓存, 构建镜像时运行
type downloadOptions struct {
	Model  string `long:"model" default:"Hcompany/Holo1.5-7B" description:"Model to download"`
	Dest   string `long:"dest" default:"" description:"Destination directory, defaults to HOLO_CACHE_DIR"`
	Branch string `long:"branch" default:"main" description:"Repository branch"`
	Quiet  bool   `long:"quiet" short:"q" description:"Suppress progress output"`
}

func main() {
	_ = godotenv.Load()

	var opts downloadOptions
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}

	dest := opts.Dest
	if dest == "" {
		home, _ := os.UserHomeDir()
		dest = utils.EnvOrDefault("HOLO_CACHE_DIR", filepath.Join(home, ".cache", "holoserve"))
	}

	downloadOpts := vlm.NewDownloadOptions()
	downloadOpts.Branch = opts.Branch
	downloadOpts.Verbose = !opts.Quiet
	downloadOpts.AuthToken = os.Getenv("HF_TOKEN")

	fmt.Printf("Downloading %s to %s...\n", opts.Model, dest)
	modelPath, err := vlm.DownloadModel(opts.Model, dest, downloadOpts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "download failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Model cached at %s\n", modelPath)
}

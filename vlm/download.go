package vlm

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gomlx/go-huggingface/hub"

	"github.com/stardustagi/HoloServe/utils"
)

// DownloadOptions 模型预下载选项
type DownloadOptions struct {
	AuthToken     string
	Branch        string
	MaxRetries    int
	RetryInterval int
	Verbose       bool
}

// NewDownloadOptions creates DownloadOptions with default values.
func NewDownloadOptions() DownloadOptions {
	d := DownloadOptions{}
	d.Branch = "main"
	d.MaxRetries = 5
	d.RetryInterval = 5
	return d
}

// DownloadModel pre-fetches the model weights, config and tokenizer from the
// HuggingFace hub into destination so serve-time startup never hits the
// network. Gated models need options.AuthToken.
func DownloadModel(modelName string, destination string, options DownloadOptions) (string, error) {
	modelPath := path.Join(destination, strings.Replace(modelName, "/", "_", -1))

	repo := hub.New(modelName)
	if options.AuthToken != "" {
		repo = repo.WithAuth(options.AuthToken)
	}
	if options.Verbose {
		repo.Verbosity = 1
		repo.WithProgressBar(true)
	} else {
		repo.Verbosity = 0
		repo.WithProgressBar(false)
	}
	if options.Branch != "" {
		repo.WithRevision(options.Branch)
	}

	downloadFiles, err := listModelFiles(repo, modelName, options)
	if err != nil {
		return "", err
	}

	for i := 0; i < options.MaxRetries; i++ {
		downloadPaths, downloadErr := repo.DownloadFiles(downloadFiles...)
		if downloadErr != nil {
			if options.Verbose {
				fmt.Printf("Warning: attempt %d / %d failed, error: %s\n", i+1, options.MaxRetries, downloadErr)
			}
			time.Sleep(time.Duration(options.RetryInterval) * time.Second)
			continue
		}

		for j, downloadPath := range downloadPaths {
			truePath, symErr := filepath.EvalSymlinks(downloadPath)
			if symErr != nil {
				return "", symErr
			}
			moveErr := utils.CopyFile(truePath, fmt.Sprintf("%s/%s", modelPath, path.Base(downloadFiles[j])))
			if moveErr != nil {
				return "", moveErr
			}
		}

		if options.Verbose {
			fmt.Printf("\nDownload of %s completed successfully\n", modelName)
		}
		return modelPath, nil
	}

	return "", fmt.Errorf("failed to download %s after %d attempts", modelName, options.MaxRetries)
}

// listModelFiles 列出需要下载的文件: 权重 + 配置 + 分词器
func listModelFiles(repo *hub.Repo, modelName string, options DownloadOptions) ([]string, error) {
	for i := 0; i < options.MaxRetries; i++ {
		err := repo.DownloadInfo(false)
		if err == nil {
			break
		}
		if options.Verbose {
			fmt.Printf("Warning: list repo attempt %d / %d failed, error: %s\n", i+1, options.MaxRetries, err)
		}
		if i+1 == options.MaxRetries {
			return nil, err
		}
		time.Sleep(time.Duration(options.RetryInterval) * time.Second)
	}

	var toDownload []string
	hasWeights := false
	for fileName, err := range repo.IterFileNames() {
		if err != nil {
			return nil, err
		}
		baseFileName := filepath.Base(fileName)
		switch {
		case filepath.Ext(baseFileName) == ".safetensors":
			hasWeights = true
			toDownload = append(toDownload, fileName)
		case baseFileName == "tokenizer.json",
			baseFileName == "tokenizer_config.json",
			baseFileName == "special_tokens_map.json",
			baseFileName == "preprocessor_config.json",
			baseFileName == "generation_config.json",
			baseFileName == "config.json",
			baseFileName == "model.safetensors.index.json":
			toDownload = append(toDownload, fileName)
		}
	}

	if !hasWeights {
		return nil, fmt.Errorf("model %s has no .safetensors weight files", modelName)
	}
	return toDownload, nil
}

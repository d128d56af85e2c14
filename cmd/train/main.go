package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fyerfyer/ticket-copilot/internal/classifier"
)

// 离线训练命令：从标注CSV训练TF-IDF+朴素贝叶斯分类模型，
// 交叉验证后把模型文件写到指定路径。服务启动时加载该文件，
// 文件缺失则回退到规则分类。
func main() {
	dataPath := flag.String("data", "", "Labeled CSV file with text,category columns")
	outPath := flag.String("out", "./data/classifier.json", "Output model artifact path")
	alpha := flag.Float64("alpha", 1.0, "Naive Bayes smoothing")
	minDF := flag.Int("min-df", 1, "Minimum document frequency per token")
	flag.Parse()

	if *dataPath == "" {
		fmt.Fprintln(os.Stderr, "usage: train -data tickets.csv [-out classifier.json]")
		os.Exit(1)
	}

	samples, err := loadSamples(*dataPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load training data: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d samples from %s\n", len(samples), *dataPath)

	cfg := classifier.DefaultTrainConfig()
	cfg.Alpha = *alpha
	cfg.MinDF = *minDF

	// 先交叉验证报告指标，再在全量数据上训练最终模型
	metrics, err := classifier.CrossValidate(samples, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cross-validation failed: %v\n", err)
		os.Exit(1)
	}
	report, _ := json.MarshalIndent(metrics, "", "  ")
	fmt.Printf("Cross-validation metrics:\n%s\n", report)

	artifact, err := classifier.Train(samples, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Training failed: %v\n", err)
		os.Exit(1)
	}

	if err := classifier.SaveArtifact(artifact, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to save artifact: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Model %s saved to %s (vocabulary: %d terms, classes: %v)\n",
		artifact.Version, *outPath, len(artifact.Vocabulary), artifact.Classes)
}

// loadSamples 读取text,category两列的CSV
// 第一行若是表头则跳过，类别必须是已知标签
func loadSamples(path string) ([]classifier.Sample, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = 2

	var samples []classifier.Sample
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		text := strings.TrimSpace(record[0])
		category := strings.ToLower(strings.TrimSpace(record[1]))

		if first {
			first = false
			if category == "category" || category == "label" {
				continue
			}
		}

		if text == "" {
			continue
		}
		if !classifier.IsValidCategory(classifier.Category(category)) {
			return nil, fmt.Errorf("unknown category %q for sample %q", category, text)
		}

		samples = append(samples, classifier.Sample{Text: text, Category: category})
	}
	return samples, nil
}

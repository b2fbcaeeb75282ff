// Command simsiam trains a SimSiam model on CIFAR-10 or STL-10.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"

	"github.com/winter1pm/simsiam/config"
	"github.com/winter1pm/simsiam/data"
	"github.com/winter1pm/simsiam/internal/autodiff"
	"github.com/winter1pm/simsiam/internal/backend/cpu"
	"github.com/winter1pm/simsiam/simsiam"
	"github.com/winter1pm/simsiam/trainer"
)

type backend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

func main() {
	if err := run(); err != nil {
		log.SetFlags(0)
		log.Fatalf("simsiam: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "", "YAML config file (flags override it)")
	dataset := flag.String("dataset", "", "dataset: cifar10, stl10 or imagenet2012")
	dataDir := flag.String("data-dir", "", "dataset directory")
	metaDir := flag.String("meta-dir", "", "metadata directory (imagenet only)")
	numWorkers := flag.Int("num-workers", -1, "augmentation worker goroutines")
	batchSize := flag.Int("batch-size", 0, "samples per batch")
	learningRate := flag.Float64("learning-rate", 0, "base learning rate")
	weightDecay := flag.Float64("weight-decay", -1, "weight decay")
	warmupEpochs := flag.Int("warmup-epochs", -1, "linear warmup epochs")
	maxEpochs := flag.Int("max-epochs", 0, "total training epochs")
	onlineFT := flag.Bool("online-ft", false, "run the online fine-tuned evaluator")
	seed := flag.Int64("seed", 0, "global random seed")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	}

	// Explicit flags win over the config file.
	applyFlags(&cfg, *dataset, *dataDir, *metaDir, *numWorkers, *batchSize,
		*learningRate, *weightDecay, *warmupEpochs, *maxEpochs, *onlineFT, *seed)
	if err := cfg.Validate(); err != nil {
		return err
	}

	// One global seed drives weight initialization; the loaders derive
	// their shuffle and augmentation streams from it.
	rand.Seed(cfg.Seed) //nolint:staticcheck // Reproducibility over the global source used by weight init.

	be := autodiff.New(cpu.New())
	log.Printf("backend: %s", be.Name())

	trainSet, valSet, err := loadDataset(cfg)
	if err != nil {
		return err
	}

	c, h, w := trainSet.Dims()
	if c != 3 {
		return fmt.Errorf("expected 3-channel images, got %d", c)
	}
	if h != w {
		return fmt.Errorf("expected square images, got %dx%d", h, w)
	}

	model, err := simsiam.New[backend](simsiam.Hyperparameters{
		NumClasses:   trainSet.NumClasses(),
		LearningRate: cfg.LearningRate,
		WeightDecay:  cfg.WeightDecay,
		InputHeight:  h,
		BatchSize:    cfg.BatchSize,
		NumWorkers:   cfg.NumWorkers,
		WarmupEpochs: cfg.WarmupEpochs,
		MaxEpochs:    cfg.MaxEpochs,
	}, be)
	if err != nil {
		return err
	}

	if *onlineFT {
		log.Printf("online fine-tuning requested: evaluator not wired into this build, continuing without it")
	}

	mean, std := datasetStats(cfg.Dataset)
	trainLoader := data.NewLoader(trainSet, data.NewTwoViewTransform(mean, std), be, data.LoaderConfig{
		BatchSize:  cfg.BatchSize,
		Shuffle:    true,
		NumWorkers: cfg.NumWorkers,
		Seed:       cfg.Seed,
		DropLast:   true,
	})

	var valLoader *data.Loader[backend]
	if valSet != nil {
		valLoader = data.NewLoader(valSet, &data.EvalTransform{Mean: mean, Std: std}, be, data.LoaderConfig{
			BatchSize: cfg.BatchSize,
			Seed:      cfg.Seed,
			DropLast:  true,
		})
	}

	t := trainer.New(be, trainer.Config{MaxEpochs: cfg.MaxEpochs})
	return t.Fit(model, trainLoader, valLoader)
}

func applyFlags(cfg *config.Config, dataset, dataDir, metaDir string,
	numWorkers, batchSize int, learningRate, weightDecay float64,
	warmupEpochs, maxEpochs int, onlineFT bool, seed int64) {
	if dataset != "" {
		cfg.Dataset = dataset
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if metaDir != "" {
		cfg.MetaDir = metaDir
	}
	if numWorkers >= 0 {
		cfg.NumWorkers = numWorkers
	}
	if batchSize > 0 {
		cfg.BatchSize = batchSize
	}
	if learningRate > 0 {
		cfg.LearningRate = float32(learningRate)
	}
	if weightDecay >= 0 {
		cfg.WeightDecay = float32(weightDecay)
	}
	if warmupEpochs >= 0 {
		cfg.WarmupEpochs = warmupEpochs
	}
	if maxEpochs > 0 {
		cfg.MaxEpochs = maxEpochs
	}
	if onlineFT {
		cfg.OnlineFT = true
	}
	if seed != 0 {
		cfg.Seed = seed
	}
}

// loadDataset returns the training split and, when the dataset ships one,
// a validation split.
func loadDataset(cfg config.Config) (train, val data.Dataset, err error) {
	switch cfg.Dataset {
	case "cifar10":
		trainSet, err := data.LoadCIFAR10(cfg.DataDir, true)
		if err != nil {
			return nil, nil, err
		}
		testSet, err := data.LoadCIFAR10(cfg.DataDir, false)
		if err != nil {
			return nil, nil, err
		}
		return trainSet, testSet, nil

	case "stl10":
		trainSet, err := data.LoadSTL10(cfg.DataDir, "unlabeled")
		if err != nil {
			return nil, nil, err
		}
		testSet, err := data.LoadSTL10(cfg.DataDir, "test")
		if err != nil {
			// The unlabeled split can stand alone.
			log.Printf("no STL-10 test split, skipping validation: %v", err)
			return trainSet, nil, nil
		}
		return trainSet, testSet, nil

	case "imagenet2012":
		return nil, nil, fmt.Errorf("imagenet2012 is not supported by this build (no local reader)")

	default:
		return nil, nil, fmt.Errorf("unknown dataset %q", cfg.Dataset)
	}
}

func datasetStats(dataset string) (mean, std [3]float32) {
	switch dataset {
	case "stl10":
		return data.STL10Mean, data.STL10Std
	default:
		return data.CIFAR10Mean, data.CIFAR10Std
	}
}

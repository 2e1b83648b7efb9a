package registryparser

import (
	"context"
	"time"

	"github.com/giygas/drugregistry/interfaces"
	"github.com/giygas/drugregistry/registryparser/entities"
)

// DrugsPipeline fetches and parses the drug registry feed.
type DrugsPipeline struct {
	fetcher    interfaces.Fetcher
	normalizer *Normalizer
}

// NewDrugsPipeline wires a fetcher to a normalizer tagging rows with dataSource.
func NewDrugsPipeline(fetcher interfaces.Fetcher, dataSource string, now func() time.Time) *DrugsPipeline {
	return &DrugsPipeline{
		fetcher:    fetcher,
		normalizer: NewNormalizer(dataSource, now),
	}
}

func (p *DrugsPipeline) Fetch(ctx context.Context) ([]byte, error) {
	return p.fetcher.Fetch(ctx)
}

func (p *DrugsPipeline) Parse(blob []byte) ([]entities.Drug, ParseStats, error) {
	return ParseDrugs(blob, p.normalizer)
}

// ClassificationPipeline fetches and parses the classification feed.
type ClassificationPipeline struct {
	fetcher interfaces.Fetcher
}

func NewClassificationPipeline(fetcher interfaces.Fetcher) *ClassificationPipeline {
	return &ClassificationPipeline{fetcher: fetcher}
}

func (p *ClassificationPipeline) Fetch(ctx context.Context) ([]byte, error) {
	return p.fetcher.Fetch(ctx)
}

func (p *ClassificationPipeline) Parse(blob []byte) ([]entities.Classification, ParseStats, error) {
	return ParseClassifications(blob)
}

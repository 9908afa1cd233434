package freshen

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/temirov/repofresh/internal/repository"
)

const (
	listingIndentationConstant = 2
)

// RepositoryListing describes one resolved repository.
type RepositoryListing struct {
	repository.Settings `yaml:",inline"`
	Directory           string `yaml:"directory"`
}

// ListAll resolves the repository set without running anything or opening the log file.
func (service *Service) ListAll(options Options) ([]RepositoryListing, error) {
	plan, planError := service.planLoader.LoadPlan(options)
	if planError != nil {
		return nil, planError
	}

	listings := make([]RepositoryListing, 0, len(plan.Repositories))
	for _, managedRepository := range plan.Repositories {
		listings = append(listings, RepositoryListing{
			Settings:  managedRepository.Settings(),
			Directory: managedRepository.Directory(),
		})
	}
	return listings, nil
}

// WriteListings renders listings as a YAML sequence.
func WriteListings(writer io.Writer, listings []RepositoryListing) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(listingIndentationConstant)
	if encodeError := encoder.Encode(listings); encodeError != nil {
		return encodeError
	}
	return encoder.Close()
}

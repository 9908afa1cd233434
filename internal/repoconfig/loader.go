package repoconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/afero"
	"gopkg.in/ini.v1"

	"github.com/temirov/repofresh/internal/repos/shared"
	"github.com/temirov/repofresh/internal/repository"
	pathutils "github.com/temirov/repofresh/internal/utils/path"
)

const (
	// DefaultConfigurationPathConstant is where the repository list is read from when no path is given.
	DefaultConfigurationPathConstant = "~/.repos.ini"

	globalSectionNameConstant              = "repos"
	repositoryListKeyConstant              = "list"
	logFileKeyConstant                     = "logfile"
	repositorySectionPrefixConstant        = "repo:"
	repositoryListSeparatorConstant        = ","
	nameKeyConstant                        = "name"
	baseDirectoryKeyConstant               = "basedir"
	pullRemoteKeyConstant                  = "pull"
	branchKeyConstant                      = "branch"
	configurationNotFoundMessageConstant   = "repository configuration not found"
	configurationNotFoundTemplateConstant  = "%w: %s"
	configurationReadErrorTemplateConstant = "unable to read repository configuration %s: %w"
	configurationParseTemplateConstant     = "unable to parse repository configuration %s: %w"
	sectionCreationErrorTemplateConstant   = "unable to prepare section %s: %w"
	sectionDecodeErrorTemplateConstant     = "unable to decode section %s: %w"
	repositoryCreationTemplateConstant     = "unable to configure repository %s: %w"
	mapstructureTagNameConstant            = "mapstructure"
)

// ErrConfigurationNotFound indicates the repository configuration file does not exist.
var ErrConfigurationNotFound = errors.New(configurationNotFoundMessageConstant)

// Loader reads repository configuration files.
type Loader struct {
	FileSystem   afero.Fs
	HomeExpander *pathutils.HomeExpander
}

// Configuration is a parsed repository configuration file.
type Configuration struct {
	path         string
	file         *ini.File
	homeExpander *pathutils.HomeExpander
}

type repositorySection struct {
	Name          string            `mapstructure:"name"`
	BaseDirectory string            `mapstructure:"basedir"`
	PullRemote    string            `mapstructure:"pull"`
	PushRemote    string            `mapstructure:"push"`
	Branch        string            `mapstructure:"branch"`
	InstallMode   string            `mapstructure:"install_mode"`
	Attributes    map[string]string `mapstructure:",remain"`
}

// Load reads and parses the configuration at configurationPath. Missing and
// malformed files are errors.
func (loader Loader) Load(configurationPath string) (*Configuration, error) {
	fileSystem := loader.FileSystem
	if fileSystem == nil {
		fileSystem = afero.NewOsFs()
	}
	homeExpander := loader.HomeExpander
	if homeExpander == nil {
		homeExpander = pathutils.NewHomeExpander()
	}

	trimmedPath := strings.TrimSpace(configurationPath)
	if len(trimmedPath) == 0 {
		trimmedPath = DefaultConfigurationPathConstant
	}
	resolvedPath := homeExpander.Expand(trimmedPath)

	content, readError := afero.ReadFile(fileSystem, resolvedPath)
	if readError != nil {
		if errors.Is(readError, fs.ErrNotExist) {
			return nil, fmt.Errorf(configurationNotFoundTemplateConstant, ErrConfigurationNotFound, resolvedPath)
		}
		return nil, fmt.Errorf(configurationReadErrorTemplateConstant, resolvedPath, readError)
	}

	parsedFile, parseError := ini.LoadSources(ini.LoadOptions{
		InsensitiveKeys:            true,
		SpaceBeforeInlineComment:   true,
		AllowPythonMultilineValues: true,
	}, content)
	if parseError != nil {
		return nil, fmt.Errorf(configurationParseTemplateConstant, resolvedPath, parseError)
	}

	return &Configuration{path: resolvedPath, file: parsedFile, homeExpander: homeExpander}, nil
}

// Path reports the expanded location the configuration was read from.
func (configuration *Configuration) Path() string {
	return configuration.path
}

// LogFile returns the [repos] logfile value, if configured.
func (configuration *Configuration) LogFile() (string, bool) {
	return configuration.globalValue(logFileKeyConstant)
}

// RepositoryNames resolves which repositories to operate on. A non-empty
// restrict list wins, then [repos] list, then every repo:<name> section in
// file order.
func (configuration *Configuration) RepositoryNames(restrict []string) []string {
	if explicitNames := sanitizeNames(restrict); len(explicitNames) > 0 {
		return explicitNames
	}

	if listValue, hasList := configuration.globalValue(repositoryListKeyConstant); hasList {
		return sanitizeNames(strings.Split(listValue, repositoryListSeparatorConstant))
	}

	discoveredNames := []string{}
	for _, sectionName := range configuration.file.SectionStrings() {
		repositoryName, isRepositorySection := strings.CutPrefix(sectionName, repositorySectionPrefixConstant)
		if !isRepositorySection || len(strings.TrimSpace(repositoryName)) == 0 {
			continue
		}
		discoveredNames = append(discoveredNames, repositoryName)
	}
	return discoveredNames
}

// RepositorySettings merges built-in defaults, [DEFAULT], and the repo:<name>
// section. A missing section is created empty so defaults still apply.
// Keys other than the recognized ones are kept as Attributes.
func (configuration *Configuration) RepositorySettings(name string) (repository.Settings, error) {
	sectionName := repositorySectionPrefixConstant + name
	section, sectionError := configuration.file.NewSection(sectionName)
	if sectionError != nil {
		return repository.Settings{}, fmt.Errorf(sectionCreationErrorTemplateConstant, sectionName, sectionError)
	}

	mergedValues := map[string]any{
		baseDirectoryKeyConstant: repository.DefaultBaseDirectoryConstant,
		pullRemoteKeyConstant:    shared.OriginRemoteNameConstant,
		branchKeyConstant:        shared.DefaultBranchNameConstant,
	}
	for _, key := range configuration.file.Section(ini.DefaultSection).Keys() {
		mergedValues[key.Name()] = key.String()
	}
	for _, key := range section.Keys() {
		mergedValues[key.Name()] = key.String()
	}

	decodedSection := repositorySection{}
	decoder, decoderError := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &decodedSection,
		TagName:          mapstructureTagNameConstant,
		WeaklyTypedInput: true,
	})
	if decoderError != nil {
		return repository.Settings{}, fmt.Errorf(sectionDecodeErrorTemplateConstant, sectionName, decoderError)
	}
	if decodeError := decoder.Decode(mergedValues); decodeError != nil {
		return repository.Settings{}, fmt.Errorf(sectionDecodeErrorTemplateConstant, sectionName, decodeError)
	}

	repositoryName := decodedSection.Name
	if _, hasName := mergedValues[nameKeyConstant]; !hasName {
		repositoryName = name
	}

	return repository.Settings{
		Key:           name,
		Name:          repositoryName,
		BaseDirectory: decodedSection.BaseDirectory,
		PullRemote:    decodedSection.PullRemote,
		PushRemote:    decodedSection.PushRemote,
		Branch:        decodedSection.Branch,
		InstallMode:   decodedSection.InstallMode,
		Attributes:    decodedSection.Attributes,
	}, nil
}

// Repositories builds a Repository for each resolved name, in order.
func (configuration *Configuration) Repositories(restrict []string, dependencies repository.Dependencies) ([]*repository.Repository, error) {
	if dependencies.HomeExpander == nil {
		dependencies.HomeExpander = configuration.homeExpander
	}

	repositoryNames := configuration.RepositoryNames(restrict)
	repositories := make([]*repository.Repository, 0, len(repositoryNames))
	for _, repositoryName := range repositoryNames {
		settings, settingsError := configuration.RepositorySettings(repositoryName)
		if settingsError != nil {
			return nil, settingsError
		}
		configuredRepository, creationError := repository.New(settings, dependencies)
		if creationError != nil {
			return nil, fmt.Errorf(repositoryCreationTemplateConstant, repositoryName, creationError)
		}
		repositories = append(repositories, configuredRepository)
	}
	return repositories, nil
}

func (configuration *Configuration) globalValue(key string) (string, bool) {
	globalSection, sectionError := configuration.file.GetSection(globalSectionNameConstant)
	if sectionError != nil {
		return "", false
	}
	if globalSection.HasKey(key) {
		return globalSection.Key(key).String(), true
	}
	defaultSection := configuration.file.Section(ini.DefaultSection)
	if defaultSection.HasKey(key) {
		return defaultSection.Key(key).String(), true
	}
	return "", false
}

func sanitizeNames(rawNames []string) []string {
	sanitized := make([]string, 0, len(rawNames))
	for _, rawName := range rawNames {
		trimmedName := strings.TrimSpace(rawName)
		if len(trimmedName) == 0 {
			continue
		}
		sanitized = append(sanitized, trimmedName)
	}
	return sanitized
}

package config

// Configurator wraps the package level config functions so commands can be
// tested with a fake.
type Configurator interface {
	GetDefaultConfigPath() (string, error)
	Parse(string) error
	Get() *Config
	GetConfigPath() string
}

func New() Configurator {
	return &defaultConfigurator{}
}

type defaultConfigurator struct{}

func (c *defaultConfigurator) GetDefaultConfigPath() (string, error) {
	return GetDefaultConfigPath()
}

func (c *defaultConfigurator) Parse(path string) error {
	return Parse(path)
}

func (c *defaultConfigurator) Get() *Config {
	return Get()
}

func (c *defaultConfigurator) GetConfigPath() string {
	return GetConfigPath()
}

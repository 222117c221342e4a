package config

type AppConfig struct {
	Server    ServerConfig
	Log       LogConfig
	Scheduler SchedulerConfig
}

func LoadApp() (AppConfig, error) {
	logCfg, err := LoadLog()
	if err != nil {
		return AppConfig{}, err
	}
	serverCfg, err := LoadServer()
	if err != nil {
		return AppConfig{}, err
	}
	schedCfg, err := LoadScheduler()
	if err != nil {
		return AppConfig{}, err
	}
	return AppConfig{
		Server:    serverCfg,
		Log:       logCfg,
		Scheduler: schedCfg,
	}, nil
}

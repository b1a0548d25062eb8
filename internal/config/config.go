package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

type Application struct {
	Addr     string   `koanf:"addr"`
	Database Database `koanf:"db"`
	Storage  Storage  `koanf:"storage"`
	Ocr      Ocr      `koanf:"ocr"`
}

type Database struct {
	// Driver names the database driver. Only "sqlite" is supported.
	Driver string `koanf:"driver"`
	// Path is the SQLite database file.
	Path string `koanf:"path"`
}

type Storage struct {
	// Bucket enables the GCS document store when set; empty keeps the
	// in-memory store (local development only, documents do not survive
	// a restart).
	Bucket          string `koanf:"bucket"`
	CredentialsFile string `koanf:"credentialsfile"`
}

type Ocr struct {
	// MonthlyCapCents caps extraction spend per calendar month, in minor
	// currency units.
	MonthlyCapCents int64 `koanf:"monthlycapcents"`
	// CallCostCents is the estimated cost of one extraction call, used to
	// authorize the call before it is made.
	CallCostCents int64 `koanf:"callcostcents"`
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(Application{
		Addr: ":8181",
		Database: Database{
			Driver: "sqlite",
			Path:   "obratrack.db",
		},
		Ocr: Ocr{
			MonthlyCapCents: 5000,
			CallCostCents:   10,
		},
	}, "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: "OBRATRACK_",
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, "OBRATRACK_")), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	return app, nil
}

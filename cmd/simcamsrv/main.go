package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/go-chi/chi"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"goji.io"
	yml "gopkg.in/yaml.v2"

	"github.com/detlab/simcam/detector"
	"github.com/detlab/simcam/httpapi"
	"github.com/detlab/simcam/pixel"
	"github.com/detlab/simcam/snapshot"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "simcam-http.yml"
	k              = koanf.New(".")
)

type recorder struct {
	// Root is the root folder fits downloads are recorded under
	Root string `yaml:"Root"`

	// Prefix is the filename prefix to use
	Prefix string `yaml:"Prefix"`
}

type camera struct {
	// MaxWidth, MaxHeight are the maximum sensor geometry in pixels
	MaxWidth  int `yaml:"MaxWidth"`
	MaxHeight int `yaml:"MaxHeight"`

	// PixelType is the initial pixel kind, e.g. uint16
	PixelType string `yaml:"PixelType"`

	Recorder recorder `yaml:"Recorder"`
}

type config struct {
	Addr    string   `yaml:"Addr"`
	Root    string   `yaml:"Root"`
	Cameras []camera `yaml:"Cameras"`
}

func setupconfig() {
	k.Load(structs.Provider(config{
		Addr: ":8000",
		Root: "/",
		Cameras: []camera{
			{MaxWidth: 1024, MaxHeight: 1024, PixelType: "uint16"},
		}}, "koanf"), nil)
	if err := k.Load(file.Provider(ConfigFileName), yaml.Parser()); err != nil {
		errtxt := err.Error()
		if !strings.Contains(errtxt, "no such") { // file missing, who cares
			log.Fatalf("error loading config: %v", err)
		}
	}
}

func root() {
	str := `simcam-http serves simulated area detector cameras over HTTP.
Frames are synthesized on a timed cadence; exposure, gains, region of
interest, binning and pixel type are all live-configurable through the
parameter routes.

Usage:
	simcam-http <command>

Commands:
	run
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `simcam-http is amenable to configuration via its .yaml file.  For a primer on YAML, see
https://yaml.org/start.html

When no configuration is provided, the defaults are used: one 1024x1024
uint16 camera served at :8000 under /cam0.  The command mkconf generates
the configuration file with the default values.

Each camera gets its own route subtree /camN with parameter get/set,
acquisition control, frame downloads (png/jpg/fits) and snapshot
write/read.  /metrics exposes Prometheus counters and /report a text
summary of every camera.`
	fmt.Println(str)
}

func mkconf() {
	c := config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	err = yml.NewEncoder(f).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func printconf() {
	c := config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	err = yml.NewEncoder(os.Stdout).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("simcam-http version %v\n", Version)
}

func run() {
	cfg := config{}
	k.Unmarshal("", &cfg)
	if len(cfg.Cameras) == 0 {
		log.Fatal("config declares no cameras")
	}
	if err := detector.Setup(len(cfg.Cameras)); err != nil {
		log.Fatal(err)
	}
	rootRouter := chi.NewRouter()
	for i, cc := range cfg.Cameras {
		kind, err := pixel.ParseKind(cc.PixelType)
		if err != nil {
			log.Fatal(err)
		}
		cam, err := detector.Configure(i, cc.MaxWidth, cc.MaxHeight, kind)
		if err != nil {
			log.Fatal(err)
		}
		rec := &snapshot.Recorder{
			Root:    cc.Recorder.Root,
			Prefix:  cc.Recorder.Prefix,
			Enabled: cc.Recorder.Root != "",
		}
		w := httpapi.New(cam, rec)
		mux := goji.NewMux()
		w.RT().Bind(mux)
		prefix := path.Join("/", cfg.Root, fmt.Sprintf("cam%d", i))
		rootRouter.Handle(prefix+"/*", http.StripPrefix(prefix, mux))
		log.Printf("camera %d: %dx%d %v at %s", i, cc.MaxWidth, cc.MaxHeight, kind, prefix)
	}
	rootRouter.Handle("/metrics", promhttp.Handler())
	rootRouter.Get("/report", func(w http.ResponseWriter, r *http.Request) {
		level := 1
		if r.URL.Query().Get("full") != "" {
			level = 10
		}
		w.Header().Set("Content-Type", "text/plain")
		detector.Report(w, level)
	})
	log.Println("now listening for requests at", cfg.Addr)
	log.Fatal(http.ListenAndServe(cfg.Addr, rootRouter))
}

func main() {
	var cmd string
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	setupconfig()
	cmd = args[1]
	cmd = strings.ToLower(cmd)
	switch cmd {
	case "help":
		help()
		return
	case "mkconf":
		mkconf()
		return
	case "conf":
		printconf()
		return
	case "run":
		run()
		return
	case "version":
		pversion()
		return
	default:
		log.Fatal("unknown command")
	}
}

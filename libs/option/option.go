package option

import (
	"log"
	"os"

	"github.com/jessevdk/go-flags"
)

type Http struct {
	Path       string `long:"http.path" default:"" description:"Path for the HTTP server context" `
	Address    string `long:"http.address" default:"0.0.0.0" description:"Address for the HTTP server listening" `
	Port       int    `long:"http.port" default:"8000" description:"Port for the HTTP server listening" `
	Cors       bool   `long:"http.cors" description:"Support CORS access" `
	RequestLog bool   `long:"http.requestlog" description:"Log HTTP requests" `
}

type Engine struct {
	Endpoint     string `long:"engine.endpoint" default:"http://127.0.0.1:8001" description:"Base URL of the inference runtime"`
	QueueDepth   int    `long:"engine.queuedepth" default:"8" description:"Requests allowed to wait for the model"`
	QueueTimeout int    `long:"engine.queuetimeout" default:"30" description:"Seconds a request may wait for the model"`
	Timeout      int    `long:"engine.timeout" default:"120" description:"Seconds allowed for one generation call"`
}

// Options 服务参数选项
type Options struct {
	ConfigFile string `long:"config" description:"Config file for startup"`
	Http       Http   `group:"http"`
	Engine     Engine `group:"engine"`
	Version    bool   `long:"version" short:"v" description:"Show the program version"`
}

var _parser *flags.Parser

func NewOptions() *Options {
	log.SetFlags(log.Lshortfile | log.LstdFlags)
	var opts Options
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	_parser = parser
	return &opts
}

func (m *Options) Parse() error {
	_, err := _parser.ParseArgs(os.Args[1:])
	if nil == err {
		return nil
	}
	switch err.(type) {
	case *flags.Error:
		flagError := err.(*flags.Error)
		if flagError.Type == flags.ErrHelp {
			_parser.WriteHelp(os.Stdout)
			os.Exit(0)
		}
		if flagError.Type == flags.ErrRequired && m.Version {
			os.Exit(0)
		}
		os.Stdout.WriteString("Fault: \n" + err.Error() + "\n")
	default:
		log.Fatal("Unknown error: ", err)
	}

	return err
}

package main

import (
	"context"
	"log"
	"os"

	"github.com/trezcool/skilltrack/core"
	"github.com/trezcool/skilltrack/storage/dynamo"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()
	store, err := dynamo.NewStore(context.Background(), conf)
	errAndDie(err)

	cli := commandLine{store: store}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}

package main

import (
	"os"

	"moff.io/walletauth/cmd/walletauth/commands"
	"moff.io/walletauth/pkg/errors"
	"moff.io/walletauth/pkg/log"
)

func main() {
	defer func() {
		if i := recover(); i != nil {
			log.Fatal(errors.ErrorfAndReport("%v", i))
		}
	}()
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

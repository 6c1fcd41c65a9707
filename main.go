package main

import (
	"tosho/cmd"
	"tosho/engine"
	"tosho/sources/kissmanga"
	"tosho/sources/mangadex"
)

func main() {
	sources := engine.NewSources()
	sources.Add(mangadex.New())
	sources.Add(kissmanga.New())

	cmd.Execute(sources)
}

package main

import "github.com/okian/defend100/cmd/d100/root"

func main() {
	root.Execute()
}

package main

import "github.com/oshokin/study-store/cmd/study-store/cmd"

func main() {
	cmd.Execute()
}

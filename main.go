package main

import "github.com/shuflovic/AI-bookshelf/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/yuzeguitarist/text2qr/internal/cmd"

func main() {
	cmd.Execute()
}

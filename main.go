package main

import "github.com/josephgoksu/tasksense/cmd"

func main() {
	cmd.Execute()
}

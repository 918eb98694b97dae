package main

import (
	"github.com/grabpic/grabpic-api/cmd/cli"
)

// main 是 grabpic-admin 命令行工具的入口点，所有执行委托给 cli 包。
func main() {
	cli.Execute()
}

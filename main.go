/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/TrustyKrab/Englix-Server/cmd"

func main() {
	cmd.Execute()
}

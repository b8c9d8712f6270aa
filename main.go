package main

import "github.com/NamanSharma89/HospitalInsights/cmd"

func main() {
	cmd.Execute()
}

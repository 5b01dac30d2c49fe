package main

import "fmt"

func Greeting() string { return "hello" }

func main() { fmt.Println(Greeting()) }

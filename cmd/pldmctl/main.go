// Command pldmctl is the operator CLI for pldmd, grounded on the
// _examples StinkyLord-IBuildHW cmd/root.go cobra root-command/subcommand shape.
package main

func main() {
	Execute()
}

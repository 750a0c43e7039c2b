// ragctl drives the same pipeline as the API from a terminal: ingest files, ask questions,
// delete documents, print index statistics or serve the MCP tools over stdio.
package main

func main() {
	Execute()
}

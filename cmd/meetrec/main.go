// Command meetrec records Discord voice meetings and turns them into
// stored audio, transcripts and summaries.
//
// Usage:
//
//	meetrec [flags] <command> [args]
//
// Commands:
//
//	serve       - Run the Discord bot
//	doctor      - Check configuration and external tools
//	meetings    - List and show recorded meetings
//	convert     - Convert or trim an audio file with ffmpeg
//	transcript  - Print the transcript segments of a meeting
//	version     - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/haivivi/meetrec/cmd/meetrec/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

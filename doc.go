/*
Blackbox decodes flight controller blackbox logs into plain text, CSV,
JSON or GPX tracks.

Command-line Flags:

	-config=""

Optional yaml config file holding flag values. Flags given on the
command line or through the environment take precedence over the file.

	-format="plain"

Sets the output format. Defaults to plain.

Plain text renders one frame per line:

	{Type:I Offset:1234 loopIteration:512 time:1048576 ...}

CSV output carries only main (I and P) frames, since slow and GPS frames
have different columns; a header row naming the columns is written before
the first record. JSON output is one object per line, with field values
keyed by name. GPX output renders GPS frames as a track, coordinates
scaled to decimal degrees.

	-frames=""

Emits only frames of the listed types, ex. I,P,G. Defaults to all types.

	-logfile="/dev/stdout"

Sets the file decoded frames are written to.

	-stats=false

Logs counters after decoding: frames attempted and committed, sync
losses, and bytes skipped over corrupt regions.

Every flag can also be set through the environment using the flag name
upper-cased with a BLACKBOX_ prefix, ex. BLACKBOX_FORMAT=csv.

Frames that fail to decode are reported on the log with the offset and
length of the skipped region; decoding then resumes at the next frame
that parses cleanly.
*/
package main

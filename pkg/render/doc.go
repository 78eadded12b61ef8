/*
Package render projects a thread and its composer state into a flat,
depth-annotated display sequence.

The sequence is a pre-order traversal: a comment, then each of its replies
(recursively, oldest first), before the next sibling. Depth is read from the
stored node, never recomputed. Walk is lazy and restartable; Flatten is the
eager form. An optional indentation cap limits how far deep replies are
indented without hiding them.

Text and Mermaid are ready-made consumers for terminals and diagrams.
*/
package render

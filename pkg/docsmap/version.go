package docsmap

// Version is the docsmap release version.
const Version = "0.1.0"

package shelf

// Version is the shelf release version.
const Version = "0.1.0"

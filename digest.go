package volley

import "github.com/volleyfs/volley/internal/hashutil"

// DigestAlgorithm is the content digest algorithm used for archive parts.
// It serves both as an integrity fingerprint and as the content-addressed
// placement key on the upload endpoint.
const DigestAlgorithm = hashutil.Algorithm

// DigestFile computes the streaming content digest and byte length of the
// file at path; memory use is independent of file size.
var DigestFile = hashutil.DigestFile

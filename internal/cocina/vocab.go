package cocina

const vocabBase = "http://cocina.sul.stanford.edu/models/"

func vocab(name string) string {
	return vocabBase + name + ".jsonld"
}

var (
	VocabObject           = vocab("object")
	VocabImage            = vocab("image")
	VocabThreeDimensional = vocab("3d")
	VocabMap              = vocab("map")
	VocabMedia            = vocab("media")
	VocabManuscript       = vocab("manuscript")
	VocabBook             = vocab("book")
	VocabCollection       = vocab("collection")
	VocabAdminPolicy      = vocab("admin_policy")
	VocabFileset          = vocab("fileset")
	VocabFile             = vocab("file")
)

var exactTypes = map[string]string{
	"Image": VocabImage,
	"3D":    VocabThreeDimensional,
	"Map":   VocabMap,
	"Media": VocabMedia,
}

var prefixTypes = []struct {
	prefix string
	vocab  string
}{
	{"Manuscript", VocabManuscript},
	{"Book", VocabBook},
}

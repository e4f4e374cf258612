/*Package interval implements interval-union operations over genomic
  coordinates, optimized for the merged exon sets of annotated genes.
  (Note the 'union'.  Overlapping and touching intervals are merged, not
  tracked separately; the geneindex package keeps the individual exons.)
  It assumes every position fits in a PosType, which is currently defined as
  int32 since that's what BAM files are limited to.
*/
package interval
